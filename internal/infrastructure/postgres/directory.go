package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/school-notify/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Put(ctx context.Context, u *domain.User) error {
	return s.db.WithContext(ctx).Save(newUserRow(u)).Error
}

func (s *UserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *UserStore) UpdatePreferences(ctx context.Context, userID string, prefs domain.ChannelPreferences) error {
	return s.update(ctx, userID, map[string]interface{}{"preferences": datatypes.NewJSONType(prefs)})
}

func (s *UserStore) UpdateTopics(ctx context.Context, userID string, topics []string) error {
	return s.update(ctx, userID, map[string]interface{}{"topics": pq.StringArray(topics)})
}

func (s *UserStore) update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return nil
}

type DeviceStore struct {
	db *gorm.DB
}

func NewDeviceStore(db *gorm.DB) *DeviceStore {
	return &DeviceStore{db: db}
}

func (s *DeviceStore) Put(ctx context.Context, d *domain.Device) error {
	return s.db.WithContext(ctx).Save(newDeviceRow(d)).Error
}

func (s *DeviceStore) Get(ctx context.Context, deviceID string) (*domain.Device, error) {
	return s.first(s.db.WithContext(ctx).Where("id = ?", deviceID))
}

func (s *DeviceStore) GetByToken(ctx context.Context, token string) (*domain.Device, error) {
	return s.first(s.db.WithContext(ctx).Where("token = ?", token))
}

func (s *DeviceStore) ListByUser(ctx context.Context, userID string) ([]domain.Device, error) {
	var rows []deviceRow
	if err := s.db.WithContext(ctx).Where("user_id = ? AND enable", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Device, len(rows))
	for i := range rows {
		out[i] = *rows[i].toDomain()
	}
	return out, nil
}

func (s *DeviceStore) Disable(ctx context.Context, deviceID string) error {
	res := s.db.WithContext(ctx).Model(&deviceRow{}).Where("id = ?", deviceID).
		Updates(map[string]interface{}{"enable": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("device not found: %w", domain.ErrNotFound)
	}
	return nil
}

func (s *DeviceStore) first(q *gorm.DB) (*domain.Device, error) {
	var row deviceRow
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("device not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}
