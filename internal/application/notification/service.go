// Package notification serves a recipient's inbox: listing, syncing and read state.
package notification

import (
	"context"
	"time"

	"github.com/school-notify/internal/domain"
)

const maxPageSize = 100

type Service interface {
	List(ctx context.Context, userID string, q domain.RecordQuery) ([]domain.NotificationRecord, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	SyncSince(ctx context.Context, userID string, since time.Time, limit int) ([]domain.NotificationRecord, error)
	MarkAsRead(ctx context.Context, userID, recordID string) (*domain.NotificationRecord, error)
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
}

type recordStore interface {
	Get(ctx context.Context, recordID string) (*domain.NotificationRecord, error)
	ListByRecipient(ctx context.Context, recipientID string, q domain.RecordQuery) ([]domain.NotificationRecord, error)
	ListSince(ctx context.Context, recipientID string, since time.Time, limit int) ([]domain.NotificationRecord, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, recordID string, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error)
}

type service struct {
	repo recordStore
	now  func() time.Time
}

func NewService(repo recordStore) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) List(ctx context.Context, userID string, q domain.RecordQuery) ([]domain.NotificationRecord, error) {
	q.Limit = clamp(q.Limit)
	return s.repo.ListByRecipient(ctx, userID, q)
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// SyncSince returns records created after since, oldest first.
func (s *service) SyncSince(ctx context.Context, userID string, since time.Time, limit int) ([]domain.NotificationRecord, error) {
	return s.repo.ListSince(ctx, userID, since, clamp(limit))
}

// MarkAsRead is idempotent: a record that is already read keeps its first read_at.
func (s *service) MarkAsRead(ctx context.Context, userID, recordID string) (*domain.NotificationRecord, error) {
	if _, err := s.repo.MarkRead(ctx, userID, recordID, s.now()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, recordID)
}

func (s *service) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

func clamp(limit int) int {
	if limit <= 0 || limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
