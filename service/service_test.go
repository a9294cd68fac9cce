package service

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"testing"
	"time"

	"github.com/gitzhang10/tpmchain/config"
	"github.com/gitzhang10/tpmchain/digest"
	"github.com/gitzhang10/tpmchain/pbft"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, identity string, faulty map[int]string) *IntegrityService {
	t.Helper()
	conf := config.New("test", 4, int(hclog.Error), identity, 2048, "sha512", config.CommitUnconditional, time.Second, faulty)
	s, err := New(conf)
	require.NoError(t, err)
	return s
}

func sha512Hex(b []byte) string {
	sum := sha512.Sum512(b)
	return hex.EncodeToString(sum[:])
}

func TestEndToEnd(t *testing.T) {
	s := newTestService(t, "rsa", nil)
	ctx := context.Background()
	b1 := []byte("quarterly report, final")

	res := s.Submit(ctx, b1)
	require.True(t, res.Valid, res.Error)
	assert.Equal(t, sha512Hex(b1), res.Hash)
	assert.Empty(t, res.Error)
	require.Len(t, s.Chain(), 1)

	sig, err := base64.StdEncoding.DecodeString(res.Signature)
	require.NoError(t, err)
	assert.Equal(t, s.Chain()[0].Signature, sig)

	// the primary now signs with an identity nobody registered
	s.Engine().Node(pbft.PrimaryID).SetFault(pbft.FaultForge)
	res = s.Submit(ctx, b1)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Error, "pre-prepare")
	assert.Equal(t, string(pbft.PhasePrePrepare), res.Phase)
	assert.False(t, res.Internal())
	assert.Len(t, s.Chain(), 1)

	require.NoError(t, s.VerifyChain())
}

func TestSameBytesTwice(t *testing.T) {
	s := newTestService(t, "rsa", nil)
	data := []byte("same file")

	first := s.Submit(context.Background(), data)
	second := s.Submit(context.Background(), data)
	require.True(t, first.Valid)
	require.True(t, second.Valid)
	assert.Equal(t, first.Hash, second.Hash)
	// RSA-PSS is randomized, so each round carries its own signature
	assert.NotEqual(t, first.Signature, second.Signature)

	chain := s.Chain()
	require.Len(t, chain, 2)
	assert.Equal(t, chain[0].Hash, chain[1].Hash)
	assert.NotEqual(t, chain[0].BlockHash, chain[1].BlockHash)
	require.NoError(t, s.VerifyChain())
}

func TestRejectionLeavesLedgerUnchanged(t *testing.T) {
	s := newTestService(t, "ed25519", map[int]string{1: "byzantine", 2: "byzantine"})
	res := s.Submit(context.Background(), []byte("payload"))
	assert.False(t, res.Valid)
	assert.Equal(t, pbft.ReasonPrepare, res.Error)
	assert.Equal(t, sha512Hex([]byte("payload")), res.Hash)
	assert.Empty(t, res.Signature)
	assert.Empty(t, s.Chain())
}

func TestInternalFault(t *testing.T) {
	s := newTestService(t, "ed25519", map[int]string{3: "crash"})
	res := s.Submit(context.Background(), []byte("payload"))
	assert.False(t, res.Valid)
	assert.True(t, res.Internal())
	assert.Equal(t, "internal consensus error", res.Error)
	assert.Empty(t, s.Chain())
}

func TestDigestIsIndependentOfKeys(t *testing.T) {
	data := []byte("digest me")
	a := newTestService(t, "ed25519", nil).Submit(context.Background(), data)
	b := newTestService(t, "ed25519", nil).Submit(context.Background(), data)
	assert.Equal(t, a.Hash, b.Hash)
	assert.NotEqual(t, a.Signature, b.Signature)
	assert.Len(t, a.Hash, digest.HexLen)
}

func TestBlake3Digest(t *testing.T) {
	conf := config.New("test", 4, int(hclog.Error), "ed25519", 0, "blake3", config.CommitQuorum, time.Second, nil)
	s, err := New(conf)
	require.NoError(t, err)

	data := []byte("blake3 payload")
	want, err := digest.Sum(digest.BLAKE3, data)
	require.NoError(t, err)
	res := s.Submit(context.Background(), data)
	require.True(t, res.Valid, res.Error)
	assert.Equal(t, want, res.Hash)
}

func TestMetrics(t *testing.T) {
	s := newTestService(t, "ed25519", nil)
	ctx := context.Background()
	s.Submit(ctx, []byte("a"))
	s.Submit(ctx, []byte("b"))
	s.Engine().Node(2).SetFault(pbft.FaultWithhold)
	s.Engine().Node(3).SetFault(pbft.FaultWithhold)
	s.Submit(ctx, []byte("c"))

	m := s.Metrics()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RoundsTotal.WithLabelValues(outcomeCommitted, "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoundsTotal.WithLabelValues(outcomeRejected, string(pbft.PhaseCommit))))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerHeight))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RoundDuration, "tpmchain_round_duration_seconds"))
}

func TestSilentNodeNeedsPhaseDeadline(t *testing.T) {
	conf := config.New("test", 4, int(hclog.Error), "ed25519", 0, "sha512", config.CommitUnconditional, 0,
		map[int]string{3: "silent"})
	_, err := New(conf)
	require.Error(t, err)

	// with a deadline the same node set answers, and the ledger stays empty
	conf.PhaseTimeout = 50 * time.Millisecond
	s, err := New(conf)
	require.NoError(t, err)
	done := make(chan VerificationResult, 1)
	go func() { done <- s.Submit(context.Background(), []byte("x")) }()
	select {
	case res := <-done:
		assert.False(t, res.Valid)
		assert.Equal(t, pbft.ReasonPrepare, res.Error)
	case <-time.After(5 * time.Second):
		t.Fatal("Submit did not return")
	}
	assert.Empty(t, s.Chain())
}

func TestInvalidConfig(t *testing.T) {
	conf := config.New("test", 4, int(hclog.Error), "ed25519", 0, "md5", config.CommitUnconditional, time.Second, nil)
	_, err := New(conf)
	assert.Error(t, err)
}
