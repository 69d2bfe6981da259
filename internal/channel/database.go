package channel

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/pkg/id"
)

// RecordStore persists inbox records. Insert must fail with domain.ErrConflict
// when a record with the same id already exists.
type RecordStore interface {
	Insert(ctx context.Context, rec *domain.NotificationRecord) error
}

// RecordPublisher is notified after a record is created, e.g. the live stream hub.
type RecordPublisher interface {
	PublishRecord(ctx context.Context, rec *domain.NotificationRecord) error
}

// DatabaseSender writes the in-app inbox record and announces it to publishers.
type DatabaseSender struct {
	store      RecordStore
	publishers []RecordPublisher
	logger     *slog.Logger
}

func NewDatabaseSender(store RecordStore, logger *slog.Logger, publishers ...RecordPublisher) *DatabaseSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatabaseSender{store: store, publishers: publishers, logger: logger}
}

func (s *DatabaseSender) Channel() domain.Channel { return domain.ChannelDatabase }

func (s *DatabaseSender) Send(ctx context.Context, r *domain.Recipient, p Payload) domain.DeliveryResult {
	rec := &domain.NotificationRecord{
		ID:          id.ForDelivery(r.ID, p.OriginID),
		RecipientID: r.ID,
		Type:        p.Type,
		Data:        p.Data,
		Important:   p.Important,
		OriginID:    p.OriginID,
		CreatedAt:   time.Now().UTC(),
	}
	if len(p.Deliveries) > 0 {
		rec.ChannelResults = make(map[domain.Channel]domain.DeliveryResult, len(p.Deliveries))
		for _, d := range p.Deliveries {
			rec.ChannelResults[d.Channel] = d
		}
	}

	err := s.store.Insert(ctx, rec)
	switch {
	case errors.Is(err, domain.ErrConflict):
		// Re-delivery of the same origin event: the record already exists.
		s.logger.Info("notification record already exists", "record_id", rec.ID, "recipient_id", r.ID)
		return succeeded(domain.ChannelDatabase, r.ID, rec.ID)
	case err != nil:
		return Failed(domain.ChannelDatabase, r.ID, err)
	}

	for _, pub := range s.publishers {
		if err := pub.PublishRecord(ctx, rec); err != nil {
			s.logger.Warn("publish notification record", "record_id", rec.ID, "err", err)
		}
	}
	return succeeded(domain.ChannelDatabase, r.ID, rec.ID)
}
