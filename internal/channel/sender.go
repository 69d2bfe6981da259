// Package channel holds the per-transport senders the dispatcher fans out to.
// Every sender converts provider and network failures into a failed
// DeliveryResult; Send never returns an error.
package channel

import (
	"context"
	"time"

	"github.com/school-notify/internal/domain"
)

// Payload is what the dispatcher hands to each sender for one recipient.
type Payload struct {
	Type      string
	OriginID  string
	Data      map[string]any
	Important bool
	// Deliveries holds the recipient's results on the other channels of the
	// same dispatch. The database channel stores them on the record.
	Deliveries []domain.DeliveryResult
}

// Sender delivers a payload to one recipient over one channel.
type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, r *domain.Recipient, p Payload) domain.DeliveryResult
}

func succeeded(ch domain.Channel, recipientID, messageID string) domain.DeliveryResult {
	return domain.DeliveryResult{
		Channel:     ch,
		RecipientID: recipientID,
		Success:     true,
		MessageID:   messageID,
		Timestamp:   time.Now().UTC(),
	}
}

// Failed builds a failed result for ch. The dispatcher uses it for pairs that
// never reach a sender.
func Failed(ch domain.Channel, recipientID string, err error) domain.DeliveryResult {
	return domain.DeliveryResult{
		Channel:     ch,
		RecipientID: recipientID,
		Success:     false,
		Error:       err.Error(),
		Timestamp:   time.Now().UTC(),
	}
}

// stringData extracts the string-valued entries of data for transports that
// only carry string maps.
func stringData(data map[string]any) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
