// Package stream fans newly created inbox records out to live client connections.
package stream

import (
	"context"
	"log/slog"
	"sync"

	"github.com/school-notify/internal/domain"
)

// DefaultBuffer is the per-subscriber queue length. A subscriber that falls
// this far behind misses events and recovers through the sync endpoint.
const DefaultBuffer = 16

// Hub is an in-process publish/subscribe point keyed by recipient id.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
	logger *slog.Logger
}

type subscriber struct {
	ch chan domain.NotificationRecord
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{subs: make(map[string]map[*subscriber]struct{}), buffer: buffer, logger: logger}
}

// Subscribe registers a listener for userID. The returned cancel func must be
// called when the listener goes away; it closes the channel.
func (h *Hub) Subscribe(userID string) (<-chan domain.NotificationRecord, func()) {
	s := &subscriber{ch: make(chan domain.NotificationRecord, h.buffer)}
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscriber]struct{})
	}
	h.subs[userID][s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], s)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(s.ch)
		})
	}
}

// PublishRecord never blocks: a full subscriber queue drops the event.
func (h *Hub) PublishRecord(_ context.Context, rec *domain.NotificationRecord) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[rec.RecipientID] {
		select {
		case s.ch <- *rec:
		default:
			h.logger.Warn("stream subscriber lagging, event dropped", "recipient_id", rec.RecipientID, "record_id", rec.ID)
		}
	}
	return nil
}

// Subscribers reports the number of live listeners for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
