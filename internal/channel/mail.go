package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/school-notify/internal/domain"
)

// Mailer is the outbound mail transport.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
}

type MailSender struct {
	mailer    Mailer
	templates *TemplateStore
}

func NewMailSender(mailer Mailer, templates *TemplateStore) *MailSender {
	return &MailSender{mailer: mailer, templates: templates}
}

func (s *MailSender) Channel() domain.Channel { return domain.ChannelMail }

func (s *MailSender) Send(ctx context.Context, r *domain.Recipient, p Payload) domain.DeliveryResult {
	if r.Email == "" {
		return Failed(domain.ChannelMail, r.ID, errors.New("recipient has no email address"))
	}
	msg, err := s.templates.Compose(domain.ChannelMail, r, p)
	if err != nil {
		return Failed(domain.ChannelMail, r.ID, fmt.Errorf("compose mail: %w", err))
	}
	messageID, err := s.mailer.SendEmail(ctx, r.Email, msg.Subject, msg.Body)
	if err != nil {
		return Failed(domain.ChannelMail, r.ID, fmt.Errorf("send mail: %w", err))
	}
	return succeeded(domain.ChannelMail, r.ID, messageID)
}
