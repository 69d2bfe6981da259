package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/school-notify/internal/domain"
)

const defaultRecordLimit = 50

type RecordStore struct {
	mu      sync.Mutex
	records map[string]domain.NotificationRecord
}

func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]domain.NotificationRecord)}
}

func (s *RecordStore) Insert(_ context.Context, rec *domain.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("record %s: %w", rec.ID, domain.ErrConflict)
	}
	s.records[rec.ID] = *rec
	return nil
}

func (s *RecordStore) Get(_ context.Context, recordID string) (*domain.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordID]
	if !ok {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

func (s *RecordStore) ListByRecipient(_ context.Context, recipientID string, q domain.RecordQuery) ([]domain.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.collect(func(r domain.NotificationRecord) bool {
		return r.RecipientID == recipientID && (!q.UnreadOnly || r.Unread())
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, q.Limit), nil
}

func (s *RecordStore) ListSince(_ context.Context, recipientID string, since time.Time, limit int) ([]domain.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.collect(func(r domain.NotificationRecord) bool {
		return r.RecipientID == recipientID && r.CreatedAt.After(since)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *RecordStore) CountUnread(_ context.Context, recipientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collect(func(r domain.NotificationRecord) bool {
		return r.RecipientID == recipientID && r.Unread()
	})), nil
}

func (s *RecordStore) MarkRead(_ context.Context, recipientID, recordID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordID]
	if !ok || rec.RecipientID != recipientID {
		return false, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	if !rec.Unread() {
		return false, nil
	}
	at = at.UTC()
	rec.ReadAt = &at
	s.records[recordID] = rec
	return true, nil
}

func (s *RecordStore) MarkAllRead(_ context.Context, recipientID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at = at.UTC()
	changed := 0
	for recID, rec := range s.records {
		if rec.RecipientID != recipientID || !rec.Unread() {
			continue
		}
		readAt := at
		rec.ReadAt = &readAt
		s.records[recID] = rec
		changed++
	}
	return changed, nil
}

func (s *RecordStore) collect(keep func(domain.NotificationRecord) bool) []domain.NotificationRecord {
	var out []domain.NotificationRecord
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func truncate(recs []domain.NotificationRecord, limit int) []domain.NotificationRecord {
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	if len(recs) > limit {
		return recs[:limit]
	}
	return recs
}
