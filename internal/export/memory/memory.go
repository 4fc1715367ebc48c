// Package memory is the in-process export backend used in tests and
// local runs without a spreadsheet configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"envelopebro/internal/core"
)

type Row struct {
	Transaction  core.Transaction
	EnvelopeName string
}

type Store struct {
	mu   sync.Mutex
	rows []Row
}

func New() *Store {
	return &Store{}
}

// Append stores the entry and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, tx core.Transaction, envelopeName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, Row{Transaction: tx, EnvelopeName: envelopeName})
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Delete removes every row holding the given transaction id.
func (s *Store) Delete(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, r := range s.rows {
		if r.Transaction.ID != transactionID {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

// Rows returns a copy of the exported entries.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}
