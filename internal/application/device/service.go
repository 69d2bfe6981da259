package device

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/pkg/id"
)

type Service interface {
	List(ctx context.Context, userID string) ([]domain.Device, error)
	Register(ctx context.Context, userID string, req domain.RegisterDeviceRequest) (*domain.Device, error)
	Remove(ctx context.Context, userID, deviceID string) error
	Subscribe(ctx context.Context, userID, topic string) error
	Unsubscribe(ctx context.Context, userID, topic string) error
}

type deviceStore interface {
	Put(ctx context.Context, d *domain.Device) error
	Get(ctx context.Context, deviceID string) (*domain.Device, error)
	GetByToken(ctx context.Context, token string) (*domain.Device, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
	Disable(ctx context.Context, deviceID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateTopics(ctx context.Context, userID string, topics []string) error
}

// topicManager is the topic half of the push gateway. Implementations batch
// the token list to the provider limit.
type topicManager interface {
	SubscribeToTopic(ctx context.Context, topic string, tokens []string) error
	UnsubscribeFromTopic(ctx context.Context, topic string, tokens []string) error
}

type service struct {
	repo   deviceStore
	users  userStore
	topics topicManager
}

type ServiceDeps struct {
	DeviceRepo deviceStore
	UserRepo   userStore
	Topics     topicManager
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.DeviceRepo, users: deps.UserRepo, topics: deps.Topics}
}

func (s *service) List(ctx context.Context, userID string) ([]domain.Device, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Register stores the token for userID. A token already known is moved to
// the caller and re-enabled. The device joins every topic the user follows.
func (s *service) Register(ctx context.Context, userID string, req domain.RegisterDeviceRequest) (*domain.Device, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	d, err := s.repo.GetByToken(ctx, req.Token)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		d = &domain.Device{DeviceID: id.New(), Token: req.Token, CreatedAt: now}
	case err != nil:
		return nil, err
	}
	d.UserID = userID
	d.Platform = req.Platform
	d.Enable = true
	d.UpdatedAt = now
	if err := s.repo.Put(ctx, d); err != nil {
		return nil, err
	}
	for _, topic := range u.Topics {
		if err := s.topics.SubscribeToTopic(ctx, topic, []string{d.Token}); err != nil {
			return nil, fmt.Errorf("subscribe device to %s: %w", topic, err)
		}
	}
	return d, nil
}

func (s *service) Remove(ctx context.Context, userID, deviceID string) error {
	d, err := s.repo.Get(ctx, deviceID)
	if err != nil {
		return err
	}
	if d.UserID != userID {
		return fmt.Errorf("device not found: %w", domain.ErrNotFound)
	}
	if err := s.repo.Disable(ctx, deviceID); err != nil {
		return err
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	for _, topic := range u.Topics {
		if err := s.topics.UnsubscribeFromTopic(ctx, topic, []string{d.Token}); err != nil {
			return fmt.Errorf("unsubscribe device from %s: %w", topic, err)
		}
	}
	return nil
}

func (s *service) Subscribe(ctx context.Context, userID, topic string) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	tokens, err := s.tokens(ctx, userID)
	if err != nil {
		return err
	}
	if len(tokens) > 0 {
		if err := s.topics.SubscribeToTopic(ctx, topic, tokens); err != nil {
			return err
		}
	}
	if slices.Contains(u.Topics, topic) {
		return nil
	}
	return s.users.UpdateTopics(ctx, userID, append(slices.Clone(u.Topics), topic))
}

func (s *service) Unsubscribe(ctx context.Context, userID, topic string) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !slices.Contains(u.Topics, topic) {
		return fmt.Errorf("not subscribed to %s: %w", topic, domain.ErrNotFound)
	}
	tokens, err := s.tokens(ctx, userID)
	if err != nil {
		return err
	}
	if len(tokens) > 0 {
		if err := s.topics.UnsubscribeFromTopic(ctx, topic, tokens); err != nil {
			return err
		}
	}
	remaining := slices.DeleteFunc(slices.Clone(u.Topics), func(t string) bool { return t == topic })
	return s.users.UpdateTopics(ctx, userID, remaining)
}

func (s *service) tokens(ctx context.Context, userID string) ([]string, error) {
	devices, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.Token)
	}
	return tokens, nil
}
