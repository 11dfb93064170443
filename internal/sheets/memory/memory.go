package memory

import (
	"context"
	"fmt"
	"sync"

	"budget/internal/core"
)

// Store is an in-memory ExpenseWriter used in tests and local runs.
type Store struct {
	mu    sync.Mutex
	items []entry
}

type entry struct {
	monthKey string
	expense  core.Expense
}

func New() *Store {
	return &Store{}
}

// Append stores the expense and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, monthKey string, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, entry{monthKey: monthKey, expense: e})
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Len reports how many rows have been appended.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Last returns the most recently appended row.
func (s *Store) Last() (string, core.Expense, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return "", core.Expense{}, false
	}
	last := s.items[len(s.items)-1]
	return last.monthKey, last.expense, true
}
