/*
Package ledger implements the append-only chain of accepted blocks.
Blocks are linked by hash so that Verify can detect any in-place change,
and every read returns copies so callers never share memory with the chain.
*/
package ledger

import (
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

// GenesisHash is the PrevHash of the first block.
const GenesisHash = "0"

// ErrIndexOutOfRange is returned by Get.
var ErrIndexOutOfRange = errors.New("index out of range")

// Ledger stores blocks in append order.
type Ledger struct {
	mu     sync.RWMutex
	blocks []Block
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{blocks: make([]Block, 0)}
}

// Append links the block to the current head and stores it. Index, PrevHash
// and BlockHash of the argument are ignored and recomputed. The stored block is
// returned.
func (l *Ledger) Append(b Block) Block {
	l.mu.Lock()
	defer l.mu.Unlock()

	nb := b.clone()
	nb.Index = len(l.blocks)
	nb.PrevHash = GenesisHash
	if nb.Index > 0 {
		nb.PrevHash = l.blocks[nb.Index-1].BlockHash
	}
	nb.BlockHash = calculateHash(nb)
	l.blocks = append(l.blocks, nb)
	return nb.clone()
}

// List returns a snapshot of the chain in append order.
func (l *Ledger) List() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Block, len(l.blocks))
	for i, b := range l.blocks {
		out[i] = b.clone()
	}
	return out
}

// Len returns the number of blocks.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Latest returns the most recently appended block.
func (l *Ledger) Latest() (Block, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.blocks) == 0 {
		return Block{}, false
	}
	return l.blocks[len(l.blocks)-1].clone(), true
}

// Get returns the block at index.
func (l *Ledger) Get(index int) (Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.blocks) {
		return Block{}, ErrIndexOutOfRange
	}
	return l.blocks[index].clone(), nil
}

// Verify walks the chain and checks index continuity, hash linkage and every
// block hash.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	prevHash := GenesisHash
	for i, b := range l.blocks {
		if b.Index != i {
			return fmt.Errorf("block %d: invalid index %d", i, b.Index)
		}
		if b.PrevHash != prevHash {
			return fmt.Errorf("block %d: invalid prev hash: expected %s, got %s", i, prevHash, b.PrevHash)
		}
		if expected := calculateHash(b); b.BlockHash != expected {
			return fmt.Errorf("block %d: invalid hash: expected %s, got %s", i, expected, b.BlockHash)
		}
		prevHash = b.BlockHash
	}
	return nil
}

// calculateHash computes the SHA-512 hash of a block over every field except
// BlockHash itself.
func calculateHash(b Block) string {
	data := fmt.Sprintf("%d|%s|%s|%d|%d|%d|%d|%s|%s",
		b.Index,
		b.Hash,
		base64.StdEncoding.EncodeToString(b.Signature),
		b.Timestamp.UnixNano(),
		b.Approvals.Prepare,
		b.Approvals.Commit,
		b.Approvals.TotalNodes,
		base64.StdEncoding.EncodeToString(b.CommitCert),
		b.PrevHash,
	)
	sum := sha512.Sum512([]byte(data))
	return hex.EncodeToString(sum[:])
}
