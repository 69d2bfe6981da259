package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/school-notify/internal/domain"
)

// TopicBatchSize is the most device tokens a push provider accepts per
// topic subscribe or unsubscribe call.
const TopicBatchSize = 1000

// PushMessage is the provider-neutral push content.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// BatchResult summarizes a multi-device send.
type BatchResult struct {
	SuccessCount int
	FailureCount int
	MessageIDs   []string
	Errors       map[string]string // token -> error
}

// PushGateway targets single devices, device sets and topics.
type PushGateway interface {
	SendToToken(ctx context.Context, token string, m PushMessage) (string, error)
	SendToTokens(ctx context.Context, tokens []string, m PushMessage) (BatchResult, error)
	SendToTopic(ctx context.Context, topic string, m PushMessage) (string, error)
	SubscribeToTopic(ctx context.Context, topic string, tokens []string) error
	UnsubscribeFromTopic(ctx context.Context, topic string, tokens []string) error
}

type PushSender struct {
	gateway   PushGateway
	templates *TemplateStore
}

func NewPushSender(gateway PushGateway, templates *TemplateStore) *PushSender {
	return &PushSender{gateway: gateway, templates: templates}
}

func (s *PushSender) Channel() domain.Channel { return domain.ChannelPush }

func (s *PushSender) Send(ctx context.Context, r *domain.Recipient, p Payload) domain.DeliveryResult {
	if len(r.DeviceTokens) == 0 {
		return Failed(domain.ChannelPush, r.ID, errors.New("recipient has no registered devices"))
	}
	msg, err := s.templates.Compose(domain.ChannelPush, r, p)
	if err != nil {
		return Failed(domain.ChannelPush, r.ID, fmt.Errorf("compose push: %w", err))
	}
	data := stringData(p.Data)
	data["type"] = p.Type
	pm := PushMessage{Title: msg.Subject, Body: msg.Body, Data: data}

	if len(r.DeviceTokens) == 1 {
		messageID, err := s.gateway.SendToToken(ctx, r.DeviceTokens[0], pm)
		if err != nil {
			return Failed(domain.ChannelPush, r.ID, fmt.Errorf("push: %w", err))
		}
		return succeeded(domain.ChannelPush, r.ID, messageID)
	}

	res, err := s.gateway.SendToTokens(ctx, r.DeviceTokens, pm)
	if err != nil {
		return Failed(domain.ChannelPush, r.ID, fmt.Errorf("push: %w", err))
	}
	if res.SuccessCount == 0 {
		return Failed(domain.ChannelPush, r.ID, fmt.Errorf("push failed on all %d devices", res.FailureCount))
	}
	return succeeded(domain.ChannelPush, r.ID, strings.Join(res.MessageIDs, ","))
}

// Batches splits tokens into chunks of at most size.
func Batches(tokens []string, size int) [][]string {
	var out [][]string
	for size > 0 && len(tokens) > 0 {
		n := min(size, len(tokens))
		out = append(out, tokens[:n:n])
		tokens = tokens[n:]
	}
	return out
}
