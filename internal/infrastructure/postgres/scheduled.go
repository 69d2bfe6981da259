package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/school-notify/internal/domain"
	"gorm.io/gorm"
)

type ScheduledStore struct {
	db *gorm.DB
}

func NewScheduledStore(db *gorm.DB) *ScheduledStore {
	return &ScheduledStore{db: db}
}

func (s *ScheduledStore) Put(ctx context.Context, n *domain.ScheduledNotification) error {
	err := s.db.WithContext(ctx).Create(newScheduledRow(n)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("scheduled notification %s: %w", n.ID, domain.ErrConflict)
	}
	return err
}

func (s *ScheduledStore) Get(ctx context.Context, id string) (*domain.ScheduledNotification, error) {
	var row scheduledRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("scheduled notification not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	n := row.toDomain()
	return &n, nil
}

func (s *ScheduledStore) List(ctx context.Context, status domain.ScheduledStatus, limit int) ([]domain.ScheduledNotification, error) {
	q := s.db.WithContext(ctx).Order("scheduled_at ASC")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return s.find(q)
}

func (s *ScheduledStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledNotification, error) {
	q := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", string(domain.StatusPending), now.UTC()).
		Order("scheduled_at ASC").
		Limit(limit)
	return s.find(q)
}

// Transition is a single conditional UPDATE; zero affected rows means another
// caller moved the entry first.
func (s *ScheduledStore) Transition(ctx context.Context, id string, from domain.ScheduledStatus, change domain.StatusChange) error {
	updates := map[string]interface{}{
		"status":     string(change.Status),
		"updated_at": change.UpdatedAt.UTC(),
	}
	if change.ScheduledAt != nil {
		updates["scheduled_at"] = change.ScheduledAt.UTC()
	}
	if change.FailureReason != nil {
		updates["failure_reason"] = *change.FailureReason
	}
	if change.LastRunAt != nil {
		updates["last_run_at"] = change.LastRunAt.UTC()
	}
	if change.RunCount != nil {
		updates["run_count"] = *change.RunCount
	}
	res := s.db.WithContext(ctx).
		Model(&scheduledRow{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("scheduled notification %s not %s: %w", id, from, domain.ErrClaimConflict)
	}
	return nil
}

func (s *ScheduledStore) find(q *gorm.DB) ([]domain.ScheduledNotification, error) {
	var rows []scheduledRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ScheduledNotification, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}
