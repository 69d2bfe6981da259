package dispatch

import (
	"context"
	"log/slog"

	"github.com/school-notify/internal/domain"
)

// Event identifies one (recipient, channel) send of a dispatch.
type Event struct {
	Type        string
	OriginID    string
	RecipientID string
	Channel     domain.Channel
}

// Observer is told about every send at its three lifecycle points.
type Observer interface {
	Sending(ctx context.Context, e Event)
	Sent(ctx context.Context, e Event, res domain.DeliveryResult)
	Failed(ctx context.Context, e Event, res domain.DeliveryResult)
}

type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Sending(ctx context.Context, e Event) {
	o.logger.DebugContext(ctx, "notification sending", e.attrs()...)
}

func (o *LogObserver) Sent(ctx context.Context, e Event, res domain.DeliveryResult) {
	o.logger.InfoContext(ctx, "notification sent", append(e.attrs(), "message_id", res.MessageID)...)
}

func (o *LogObserver) Failed(ctx context.Context, e Event, res domain.DeliveryResult) {
	o.logger.WarnContext(ctx, "notification failed", append(e.attrs(), "err", res.Error)...)
}

func (e Event) attrs() []any {
	return []any{
		"type", e.Type,
		"origin_id", e.OriginID,
		"recipient_id", e.RecipientID,
		"channel", string(e.Channel),
	}
}

type nopObserver struct{}

func (nopObserver) Sending(context.Context, Event) {}
func (nopObserver) Sent(context.Context, Event, domain.DeliveryResult) {}
func (nopObserver) Failed(context.Context, Event, domain.DeliveryResult) {}
