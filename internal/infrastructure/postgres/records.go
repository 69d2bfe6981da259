package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/school-notify/internal/domain"
	"gorm.io/gorm"
)

const defaultRecordLimit = 50

type RecordStore struct {
	db *gorm.DB
}

func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) Insert(ctx context.Context, rec *domain.NotificationRecord) error {
	err := s.db.WithContext(ctx).Create(newRecordRow(rec)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("record %s: %w", rec.ID, domain.ErrConflict)
	}
	return err
}

func (s *RecordStore) Get(ctx context.Context, recordID string) (*domain.NotificationRecord, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Where("id = ?", recordID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	rec := row.toDomain()
	return &rec, nil
}

func (s *RecordStore) ListByRecipient(ctx context.Context, recipientID string, q domain.RecordQuery) ([]domain.NotificationRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	tx := s.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if q.UnreadOnly {
		tx = tx.Where("read_at IS NULL")
	}
	return s.find(tx.Order("created_at DESC").Limit(limit))
}

func (s *RecordStore) ListSince(ctx context.Context, recipientID string, since time.Time, limit int) ([]domain.NotificationRecord, error) {
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	return s.find(s.db.WithContext(ctx).
		Where("recipient_id = ? AND created_at > ?", recipientID, since.UTC()).
		Order("created_at ASC").
		Limit(limit))
}

func (s *RecordStore) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&recordRow{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Count(&n).Error
	return int(n), err
}

func (s *RecordStore) MarkRead(ctx context.Context, recipientID, recordID string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&recordRow{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", recordID, recipientID).
		Update("read_at", at.UTC())
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&recordRow{}).
		Where("id = ? AND recipient_id = ?", recordID, recipientID).
		Count(&n).Error; err != nil {
		return false, err
	}
	if n == 0 {
		return false, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	return false, nil
}

func (s *RecordStore) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error) {
	res := s.db.WithContext(ctx).
		Model(&recordRow{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Update("read_at", at.UTC())
	return int(res.RowsAffected), res.Error
}

func (s *RecordStore) find(q *gorm.DB) ([]domain.NotificationRecord, error) {
	var rows []recordRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.NotificationRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}
