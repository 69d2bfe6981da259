package channel

import (
	"context"
	"log/slog"

	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/pkg/id"
)

// LogSMSProvider writes messages to the log instead of a gateway. It always
// succeeds and is meant for non-production environments.
type LogSMSProvider struct {
	logger *slog.Logger
}

func NewLogSMSProvider(logger *slog.Logger) *LogSMSProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSMSProvider{logger: logger}
}

func (p *LogSMSProvider) Name() string { return "log" }

func (p *LogSMSProvider) SendSMS(_ context.Context, to, body string) (string, error) {
	messageID := "log-" + id.New()
	p.logger.Info("sms", "to", to, "body", body, "message_id", messageID)
	return messageID, nil
}

func (p *LogSMSProvider) Balance(context.Context) (float64, error) { return 0, nil }

func (p *LogSMSProvider) Status(context.Context, string) (domain.DeliveryStatus, error) {
	return domain.DeliveryDelivered, nil
}

// LogPushGateway logs push sends and topic changes.
type LogPushGateway struct {
	logger *slog.Logger
}

func NewLogPushGateway(logger *slog.Logger) *LogPushGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPushGateway{logger: logger}
}

func (g *LogPushGateway) SendToToken(_ context.Context, token string, m PushMessage) (string, error) {
	messageID := "log-" + id.New()
	g.logger.Info("push", "token", token, "title", m.Title, "message_id", messageID)
	return messageID, nil
}

func (g *LogPushGateway) SendToTokens(ctx context.Context, tokens []string, m PushMessage) (BatchResult, error) {
	res := BatchResult{}
	for _, t := range tokens {
		messageID, _ := g.SendToToken(ctx, t, m)
		res.SuccessCount++
		res.MessageIDs = append(res.MessageIDs, messageID)
	}
	return res, nil
}

func (g *LogPushGateway) SendToTopic(_ context.Context, topic string, m PushMessage) (string, error) {
	messageID := "log-" + id.New()
	g.logger.Info("push topic", "topic", topic, "title", m.Title, "message_id", messageID)
	return messageID, nil
}

func (g *LogPushGateway) SubscribeToTopic(_ context.Context, topic string, tokens []string) error {
	g.logger.Info("push subscribe", "topic", topic, "devices", len(tokens))
	return nil
}

func (g *LogPushGateway) UnsubscribeFromTopic(_ context.Context, topic string, tokens []string) error {
	g.logger.Info("push unsubscribe", "topic", topic, "devices", len(tokens))
	return nil
}
