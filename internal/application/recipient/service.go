package recipient

import (
	"context"
	"fmt"

	"github.com/school-notify/internal/domain"
)

type Service interface {
	GetPreferences(ctx context.Context, userID string) (map[domain.Channel]bool, error)
	UpdatePreferences(ctx context.Context, userID string, req domain.UpdatePreferencesRequest) (map[domain.Channel]bool, error)
}

type service struct {
	users userStore
}

func NewService(users userStore) Service {
	return &service{users: users}
}

// GetPreferences reports every channel, filling in the implicit opt-ins.
func (s *service) GetPreferences(ctx context.Context, userID string) (map[domain.Channel]bool, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return expand(u.Preferences), nil
}

// UpdatePreferences merges req into the stored opt-ins.
func (s *service) UpdatePreferences(ctx context.Context, userID string, req domain.UpdatePreferencesRequest) (map[domain.Channel]bool, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefs := make(domain.ChannelPreferences, len(u.Preferences)+len(req.Preferences))
	for ch, enabled := range u.Preferences {
		prefs[ch] = enabled
	}
	for name, enabled := range req.Preferences {
		ch := domain.Channel(name)
		if !ch.Valid() {
			return nil, fmt.Errorf("unknown channel %q: %w", name, domain.ErrBadRequest)
		}
		if ch == domain.ChannelDatabase && !enabled {
			return nil, fmt.Errorf("in-app notifications cannot be disabled: %w", domain.ErrBadRequest)
		}
		prefs[ch] = enabled
	}
	if err := s.users.UpdatePreferences(ctx, userID, prefs); err != nil {
		return nil, err
	}
	return expand(prefs), nil
}

func expand(p domain.ChannelPreferences) map[domain.Channel]bool {
	out := make(map[domain.Channel]bool, len(domain.AllChannels))
	for _, ch := range domain.AllChannels {
		out[ch] = p.Allows(ch)
	}
	return out
}
