package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/school-notify/internal/domain"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore(seed ...domain.User) *UserStore {
	s := &UserStore{users: make(map[string]domain.User, len(seed))}
	for _, u := range seed {
		s.users[u.UserID] = u
	}
	return s
}

func (s *UserStore) Put(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UserID] = *u
	return nil
}

func (s *UserStore) Get(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (s *UserStore) UpdatePreferences(_ context.Context, userID string, prefs domain.ChannelPreferences) error {
	return s.update(userID, func(u *domain.User) { u.Preferences = prefs })
}

func (s *UserStore) UpdateTopics(_ context.Context, userID string, topics []string) error {
	return s.update(userID, func(u *domain.User) { u.Topics = topics })
}

func (s *UserStore) update(userID string, mutate func(*domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	mutate(&u)
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}

type DeviceStore struct {
	mu      sync.RWMutex
	devices map[string]domain.Device
}

func NewDeviceStore() *DeviceStore {
	return &DeviceStore{devices: make(map[string]domain.Device)}
}

func (s *DeviceStore) Put(_ context.Context, d *domain.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[d.DeviceID] = *d
	return nil
}

func (s *DeviceStore) Get(_ context.Context, deviceID string) (*domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("device not found: %w", domain.ErrNotFound)
	}
	return &d, nil
}

func (s *DeviceStore) GetByToken(_ context.Context, token string) (*domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.Token == token {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %w", domain.ErrNotFound)
}

func (s *DeviceStore) ListByUser(_ context.Context, userID string) ([]domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Device
	for _, d := range s.devices {
		if d.UserID == userID && d.Enable {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *DeviceStore) Disable(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return fmt.Errorf("device not found: %w", domain.ErrNotFound)
	}
	d.Enable = false
	d.UpdatedAt = time.Now().UTC()
	s.devices[deviceID] = d
	return nil
}
