package domain

import "time"

// NotificationRecord is one delivered notification in a recipient's inbox.
// At most one record exists per (recipient, origin event).
type NotificationRecord struct {
	ID             string                     `json:"id" dynamodbav:"record_id"`
	RecipientID    string                     `json:"recipient_id" dynamodbav:"recipient_id"`
	Type           string                     `json:"type" dynamodbav:"type"`
	Data           map[string]any             `json:"data" dynamodbav:"data"`
	Important      bool                       `json:"important" dynamodbav:"important"`
	OriginID       string                     `json:"origin_id" dynamodbav:"origin_id"`
	ChannelResults map[Channel]DeliveryResult `json:"channel_results,omitempty" dynamodbav:"channel_results,omitempty"`
	ReadAt         *time.Time                 `json:"read_at" dynamodbav:"read_at,omitempty"`
	CreatedAt      time.Time                  `json:"created_at" dynamodbav:"created_at"`
}

func (r *NotificationRecord) Unread() bool { return r.ReadAt == nil }

// RecordQuery narrows an inbox listing. Limit <= 0 means the store default.
type RecordQuery struct {
	Limit      int
	UnreadOnly bool
}

// DeliveryResult is the immutable outcome of one (recipient, channel) send.
type DeliveryResult struct {
	Channel     Channel   `json:"channel" dynamodbav:"channel"`
	RecipientID string    `json:"recipient_id" dynamodbav:"recipient_id"`
	Success     bool      `json:"success" dynamodbav:"success"`
	MessageID   string    `json:"message_id,omitempty" dynamodbav:"message_id,omitempty"`
	Error       string    `json:"error,omitempty" dynamodbav:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp" dynamodbav:"timestamp"`
}

// DispatchResult aggregates every attempted pair of one dispatch.
type DispatchResult struct {
	Attempted int              `json:"attempted"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Results   []DeliveryResult `json:"results"`
}

// DeliveryStatus is a provider-side message state as reported by status lookups.
type DeliveryStatus string

const (
	DeliveryQueued      DeliveryStatus = "queued"
	DeliverySent        DeliveryStatus = "sent"
	DeliveryDelivered   DeliveryStatus = "delivered"
	DeliveryUndelivered DeliveryStatus = "undelivered"
	DeliveryFailed      DeliveryStatus = "failed"
	DeliveryUnknown     DeliveryStatus = "unknown"
)

type DispatchRequest struct {
	Type       string         `json:"type" validate:"required"`
	Recipients []string       `json:"recipients" validate:"required,min=1,dive,required"`
	Channels   []string       `json:"channels" validate:"omitempty,dive,channel"`
	Data       map[string]any `json:"data"`
	OriginID   string         `json:"origin_id" validate:"omitempty,max=200"`
}

type TopicPushRequest struct {
	Title string            `json:"title" validate:"required"`
	Body  string            `json:"body" validate:"required"`
	Data  map[string]string `json:"data"`
}
