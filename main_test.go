package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gitzhang10/tpmchain/config"
	"github.com/gitzhang10/tpmchain/pbft"
	"github.com/gitzhang10/tpmchain/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, contents ...string) []string {
	t.Helper()
	dir := t.TempDir()
	var files []string
	for i, c := range contents {
		path := filepath.Join(dir, "file"+string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(path, []byte(c), 0o600))
		files = append(files, path)
	}
	return files
}

func newService(t *testing.T, faulty map[int]string) *service.IntegrityService {
	t.Helper()
	s, err := service.New(config.New("cli", 4, 6, "ed25519", 0, "sha512", config.CommitUnconditional, time.Second, faulty))
	require.NoError(t, err)
	return s
}

func TestVerifyFiles(t *testing.T) {
	s := newService(t, nil)
	files := writeFiles(t, "one", "two")
	require.NoError(t, verify(context.Background(), s, files))
	assert.Len(t, s.Chain(), 2)
}

func TestVerifyRejectionIsNotAnError(t *testing.T) {
	s := newService(t, map[int]string{0: "forge"})
	require.NoError(t, verify(context.Background(), s, writeFiles(t, "one")))
	assert.Empty(t, s.Chain())
}

func TestVerifyCountsTamperedFiles(t *testing.T) {
	s := newService(t, nil)
	s.Engine().Node(2).SetFault(pbft.FaultWithhold)
	s.Engine().Node(3).SetFault(pbft.FaultWithhold)
	jsonOutput = true
	defer func() { jsonOutput = false }()
	require.NoError(t, verify(context.Background(), s, writeFiles(t, "one", "two")))
	assert.Empty(t, s.Chain())
}

func TestVerifyInternalFault(t *testing.T) {
	s := newService(t, map[int]string{1: "crash"})
	err := verify(context.Background(), s, writeFiles(t, "one"))
	assert.ErrorIs(t, err, errInternal)
}

func TestVerifyMissingFile(t *testing.T) {
	s := newService(t, nil)
	err := verify(context.Background(), s, []string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestLoadConfigFallsBackToDefault(t *testing.T) {
	conf, err := loadConfig("does_not_exist")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), conf)
}
