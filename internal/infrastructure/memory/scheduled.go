// Package memory holds mutex-guarded stores for development and tests.
// Conditional updates compare and set under the store lock.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/school-notify/internal/domain"
)

type ScheduledStore struct {
	mu    sync.Mutex
	items map[string]domain.ScheduledNotification
}

func NewScheduledStore() *ScheduledStore {
	return &ScheduledStore{items: make(map[string]domain.ScheduledNotification)}
}

func (s *ScheduledStore) Put(_ context.Context, n *domain.ScheduledNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[n.ID]; ok {
		return fmt.Errorf("scheduled notification %s: %w", n.ID, domain.ErrConflict)
	}
	s.items[n.ID] = *n
	return nil
}

func (s *ScheduledStore) Get(_ context.Context, id string) (*domain.ScheduledNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("scheduled notification not found: %w", domain.ErrNotFound)
	}
	return &n, nil
}

func (s *ScheduledStore) List(_ context.Context, status domain.ScheduledStatus, limit int) ([]domain.ScheduledNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(n domain.ScheduledNotification) bool {
		return status == "" || n.Status == status
	}, limit), nil
}

func (s *ScheduledStore) ListDue(_ context.Context, now time.Time, limit int) ([]domain.ScheduledNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(n domain.ScheduledNotification) bool {
		return n.Status == domain.StatusPending && !n.ScheduledAt.After(now)
	}, limit), nil
}

func (s *ScheduledStore) Transition(_ context.Context, id string, from domain.ScheduledStatus, change domain.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok || n.Status != from {
		return fmt.Errorf("scheduled notification %s not %s: %w", id, from, domain.ErrClaimConflict)
	}
	change.Apply(&n)
	s.items[id] = n
	return nil
}

// filter must be called with mu held. Results are ordered by scheduled time.
func (s *ScheduledStore) filter(keep func(domain.ScheduledNotification) bool, limit int) []domain.ScheduledNotification {
	var out []domain.ScheduledNotification
	for _, n := range s.items {
		if keep(n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
