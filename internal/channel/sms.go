package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/pkg/phone"
)

// SMSProvider is an SMS gateway. Balance and Status may return domain.ErrNotSupported.
type SMSProvider interface {
	Name() string
	SendSMS(ctx context.Context, to, body string) (messageID string, err error)
	Balance(ctx context.Context) (float64, error)
	Status(ctx context.Context, messageID string) (domain.DeliveryStatus, error)
}

type SMSSender struct {
	provider      SMSProvider
	templates     *TemplateStore
	defaultRegion string
}

func NewSMSSender(provider SMSProvider, templates *TemplateStore, defaultRegion string) *SMSSender {
	return &SMSSender{provider: provider, templates: templates, defaultRegion: defaultRegion}
}

func (s *SMSSender) Channel() domain.Channel { return domain.ChannelSMS }

// Provider exposes the underlying gateway for balance and status lookups.
func (s *SMSSender) Provider() SMSProvider { return s.provider }

func (s *SMSSender) Send(ctx context.Context, r *domain.Recipient, p Payload) domain.DeliveryResult {
	if r.Phone == "" {
		return Failed(domain.ChannelSMS, r.ID, errors.New("recipient has no phone number"))
	}
	to, err := phone.Normalize(r.Phone, s.defaultRegion)
	if err != nil {
		return Failed(domain.ChannelSMS, r.ID, err)
	}
	msg, err := s.templates.Compose(domain.ChannelSMS, r, p)
	if err != nil {
		return Failed(domain.ChannelSMS, r.ID, fmt.Errorf("compose sms: %w", err))
	}
	messageID, err := s.provider.SendSMS(ctx, to, msg.Body)
	if err != nil {
		return Failed(domain.ChannelSMS, r.ID, fmt.Errorf("%s: %w", s.provider.Name(), err))
	}
	return succeeded(domain.ChannelSMS, r.ID, messageID)
}
