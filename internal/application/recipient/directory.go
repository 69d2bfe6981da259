// Package recipient resolves user ids into the routing view channel senders
// consume, and manages the per-channel opt-ins stored on the user.
package recipient

import (
	"context"
	"fmt"

	"github.com/school-notify/internal/domain"
)

type userReader interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type userStore interface {
	userReader
	UpdatePreferences(ctx context.Context, userID string, prefs domain.ChannelPreferences) error
}

type deviceStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
}

// Directory builds Recipients from the users and devices tables.
type Directory struct {
	users   userReader
	devices deviceStore
}

func NewDirectory(users userReader, devices deviceStore) *Directory {
	return &Directory{users: users, devices: devices}
}

// Resolve returns domain.ErrNotFound for unknown or disabled users.
func (d *Directory) Resolve(ctx context.Context, userID string) (*domain.Recipient, error) {
	u, err := d.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Enable == 0 {
		return nil, fmt.Errorf("user %s is disabled: %w", userID, domain.ErrNotFound)
	}
	devices, err := d.devices.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	r := &domain.Recipient{
		ID:          u.UserID,
		Name:        u.Name,
		Email:       u.Email,
		Topics:      u.Topics,
		Preferences: u.Preferences,
	}
	if u.Phone != nil {
		r.Phone = *u.Phone
	}
	for _, dev := range devices {
		if dev.Enable && dev.Token != "" {
			r.DeviceTokens = append(r.DeviceTokens, dev.Token)
		}
	}
	return r, nil
}
