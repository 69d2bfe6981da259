package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/transport/http/middleware"
	"github.com/tmaxmax/go-sse"
)

// DefaultHeartbeat keeps idle proxies from closing the stream.
const DefaultHeartbeat = 25 * time.Second

type recordSubscriber interface {
	Subscribe(userID string) (<-chan domain.NotificationRecord, func())
}

// StreamHandler pushes newly created inbox records to the caller as
// server-sent events.
type StreamHandler struct {
	hub       recordSubscriber
	heartbeat time.Duration
	logger    *slog.Logger
}

func NewStreamHandler(hub recordSubscriber, heartbeat time.Duration, logger *slog.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{hub: hub, heartbeat: heartbeat, logger: logger}
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	events, cancel := h.hub.Subscribe(claims.UserID)
	defer cancel()
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		// Missed records are fetched by the client through the sync endpoint.
		h.logger.Debug("stream resumed", "user_id", claims.UserID, "last_event_id", last)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := comment("connected").WriteTo(w); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Error("event stream unsupported", "err", err)
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := comment("heartbeat").WriteTo(w); err != nil {
				return
			}
		case rec, ok := <-events:
			if !ok {
				return
			}
			msg, err := recordEvent(rec)
			if err != nil {
				h.logger.Error("encode stream event", "record_id", rec.ID, "err", err)
				continue
			}
			if _, err := msg.WriteTo(w); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

var notificationEvent = sse.Type("notification")

func recordEvent(rec domain.NotificationRecord) (*sse.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	id, err := sse.NewID(rec.ID)
	if err != nil {
		return nil, err
	}
	msg := &sse.Message{ID: id, Type: notificationEvent}
	msg.AppendData(string(data))
	return msg, nil
}

func comment(text string) *sse.Message {
	msg := &sse.Message{}
	msg.AppendComment(text)
	return msg
}
