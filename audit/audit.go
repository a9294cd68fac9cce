// Package audit keeps the log of verification requests made through the CLI.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry statuses.
const (
	StatusValid    = "valid"
	StatusTampered = "tampered"
)

// Entry records one verification request.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	FileName  string    `json:"fileName"`
	Hash      string    `json:"hash"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntry creates an entry for a file with a fresh id.
func NewEntry(fileName, hash string, valid bool) Entry {
	status := StatusTampered
	if valid {
		status = StatusValid
	}
	return Entry{
		ID:        uuid.New(),
		FileName:  fileName,
		Hash:      hash,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

// Store is an in-memory, append-only audit log.
type Store struct {
	mu      sync.Mutex
	entries []Entry
}

// NewStore creates an empty audit log.
func NewStore() *Store {
	return &Store{}
}

// Append records e after every entry already stored.
func (s *Store) Append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// List returns the entries in insertion order.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Tampered returns the entries whose file failed verification.
func (s *Store) Tampered() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Status == StatusTampered {
			out = append(out, e)
		}
	}
	return out
}
