// Package memory is an in-process storage backend for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"spendlens/internal/core"
	"spendlens/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	order    []string
	items    map[string]core.RawExpense
	insights map[string][]core.Insight
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		items:    make(map[string]core.RawExpense),
		insights: make(map[string][]core.Insight),
	}
}

func (s *Store) CreateExpense(_ context.Context, e core.RawExpense) (core.RawExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(e)
}

func (s *Store) ImportExpenses(_ context.Context, records []core.RawExpense) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if r.ID != "" {
			if _, exists := s.items[r.ID]; exists {
				return 0, fmt.Errorf("import: duplicate expense id %s", r.ID)
			}
		}
	}
	for _, r := range records {
		if _, err := s.insertLocked(r); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}

func (s *Store) insertLocked(e core.RawExpense) (core.RawExpense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, exists := s.items[e.ID]; exists {
		return core.RawExpense{}, fmt.Errorf("duplicate expense id %s", e.ID)
	}
	s.items[e.ID] = e
	s.order = append(s.order, e.ID)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.RawExpense) (core.RawExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[e.ID]
	if !ok {
		return core.RawExpense{}, fmt.Errorf("expense %s: %w", e.ID, core.ErrNotFound)
	}
	e.UserID = current.UserID
	s.items[e.ID] = e
	return e, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.RawExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.RawExpense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) (core.RawExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.RawExpense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return e, nil
}

// ListExpenses returns the user's expenses in insertion order.
func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.RawExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RawExpense, 0)
	for _, id := range s.order {
		if e := s.items[id]; e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) SaveInsights(_ context.Context, userID string, insights []core.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights[userID] = append([]core.Insight(nil), insights...)
	return nil
}

func (s *Store) ListInsights(_ context.Context, userID string) ([]core.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Insight{}, s.insights[userID]...), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
