package memory

import (
	"context"
	"fmt"
	"sync"

	"stocktrack/internal/core"
)

// Store is an in-memory EntryArchiver used in tests and local development.
type Store struct {
	mu    sync.Mutex
	items []core.Entry
	err   error
}

func New() *Store {
	return &Store{}
}

// Append stores the entry and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []core.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Entry(nil), s.items...)
}

// Fail makes subsequent Append calls return err. Pass nil to recover.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
