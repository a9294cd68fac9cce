/*
Package service implements the integrity service: it digests submitted
bytes, drives a consensus round on the digest and appends accepted blocks to
the ledger.
*/
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gitzhang10/tpmchain/config"
	"github.com/gitzhang10/tpmchain/digest"
	"github.com/gitzhang10/tpmchain/ledger"
	"github.com/gitzhang10/tpmchain/pbft"
	"github.com/hashicorp/go-hclog"
)

// VerificationResult is the verdict on one submission.
type VerificationResult struct {
	Valid     bool   `json:"valid"`
	Hash      string `json:"hash"`
	Signature string `json:"signature,omitempty"` // base64 primary signature
	Error     string `json:"error,omitempty"`
	Phase     string `json:"phase,omitempty"` // failed phase
}

// Internal reports whether the submission failed on an unexpected fault
// rather than a consensus rejection.
func (r VerificationResult) Internal() bool {
	return !r.Valid && r.Phase == string(pbft.PhaseInternal)
}

// IntegrityService accepts file contents and records agreed digests.
type IntegrityService struct {
	engine  *pbft.Engine
	chain   *ledger.Ledger
	alg     digest.Algorithm
	metrics *Metrics
	logger  hclog.Logger
}

// New builds the node set described by conf and an empty ledger.
func New(conf *config.Config) (*IntegrityService, error) {
	alg, err := digest.ParseAlgorithm(conf.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	engine, err := pbft.NewEngine(conf)
	if err != nil {
		return nil, fmt.Errorf("create consensus engine: %w", err)
	}
	return &IntegrityService{
		engine:  engine,
		chain:   ledger.New(),
		alg:     alg,
		metrics: NewMetrics("tpmchain"),
		logger: hclog.New(&hclog.LoggerOptions{
			Name:   "integrity-service",
			Output: hclog.DefaultOutput,
			Level:  hclog.Level(conf.LogLevel),
		}),
	}, nil
}

// Submit digests data and runs a consensus round on the digest. The ledger
// is changed only when the round commits.
func (s *IntegrityService) Submit(ctx context.Context, data []byte) (res VerificationResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("submission panicked", "panic", rec)
			res = VerificationResult{Hash: res.Hash, Error: pbft.ReasonInternal, Phase: string(pbft.PhaseInternal)}
			s.metrics.RoundsTotal.WithLabelValues(outcomeInternal, string(pbft.PhaseInternal)).Inc()
		}
	}()

	hash, err := digest.Sum(s.alg, data)
	if err != nil {
		s.logger.Error("digest failed", "error", err)
		s.metrics.RoundsTotal.WithLabelValues(outcomeInternal, string(pbft.PhaseInternal)).Inc()
		return VerificationResult{Error: pbft.ReasonInternal, Phase: string(pbft.PhaseInternal)}
	}
	res.Hash = hash

	block, err := s.engine.Run(ctx, hash)
	s.metrics.RoundDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return s.failure(hash, err)
	}

	stored := s.chain.Append(*block)
	s.metrics.RoundsTotal.WithLabelValues(outcomeCommitted, "").Inc()
	s.metrics.LedgerHeight.Set(float64(s.chain.Len()))
	s.logger.Debug("block appended", "index", stored.Index, "hash", hash)
	return VerificationResult{
		Valid:     true,
		Hash:      hash,
		Signature: base64.StdEncoding.EncodeToString(stored.Signature),
	}
}

func (s *IntegrityService) failure(hash string, err error) VerificationResult {
	var re *pbft.RoundError
	if !errors.As(err, &re) {
		re = &pbft.RoundError{Phase: pbft.PhaseInternal, Reason: pbft.ReasonInternal, Err: err}
	}
	outcome := outcomeRejected
	if re.Phase == pbft.PhaseInternal {
		outcome = outcomeInternal
	}
	s.metrics.RoundsTotal.WithLabelValues(outcome, string(re.Phase)).Inc()
	return VerificationResult{
		Hash:  hash,
		Error: re.Reason,
		Phase: string(re.Phase),
	}
}

// Chain returns a snapshot of the ledger.
func (s *IntegrityService) Chain() []ledger.Block {
	return s.chain.List()
}

// VerifyChain checks the linkage of the ledger and the signatures and
// commit certificate of every block.
func (s *IntegrityService) VerifyChain() error {
	if err := s.chain.Verify(); err != nil {
		return err
	}
	for _, b := range s.chain.List() {
		if err := s.engine.VerifyBlock(b); err != nil {
			return fmt.Errorf("block %d: %w", b.Index, err)
		}
	}
	return nil
}

// Engine returns the consensus engine, e.g. to inject faults.
func (s *IntegrityService) Engine() *pbft.Engine {
	return s.engine
}

// Metrics returns the metrics of the service.
func (s *IntegrityService) Metrics() *Metrics {
	return s.metrics
}
