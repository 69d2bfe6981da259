package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/school-notify/internal/application/stream"
	"github.com/school-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmaxmax/go-sse"
)

func TestStream_MissingClaims(t *testing.T) {
	h := NewStreamHandler(stream.NewHub(0, nil), 0, nil)
	rr := httptest.NewRecorder()
	h.Stream(rr, httptest.NewRequest(http.MethodGet, "/v1/notifications/stream", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestStream_WritesEventsForCaller(t *testing.T) {
	hub := stream.NewHub(0, nil)
	h := NewStreamHandler(hub, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	r := asUser(httptest.NewRequest(http.MethodGet, "/v1/notifications/stream", nil).WithContext(ctx), "u1", domain.RoleUser)
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Stream(rr, r)
		close(done)
	}()
	require.Eventually(t, func() bool { return hub.Subscribers("u1") == 1 }, time.Second, time.Millisecond)

	require.NoError(t, hub.PublishRecord(context.Background(), &domain.NotificationRecord{ID: "n2", RecipientID: "u2"}))
	require.NoError(t, hub.PublishRecord(context.Background(), &domain.NotificationRecord{ID: "n1", RecipientID: "u1", Type: "exam.reminder"}))
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	body := rr.Body.String()
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, ":"), "the stream opens with a comment")
	assert.NotContains(t, body, "n2")
	assert.Equal(t, 0, hub.Subscribers("u1"))

	var events []sse.Event
	for ev, err := range sse.Read(strings.NewReader(body), nil) {
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.Len(t, events, 1)
	assert.Equal(t, "n1", events[0].LastEventID)
	assert.Equal(t, "notification", events[0].Type)
	var got domain.NotificationRecord
	require.NoError(t, json.Unmarshal([]byte(events[0].Data), &got))
	assert.Equal(t, "exam.reminder", got.Type)
}

func TestStream_Heartbeat(t *testing.T) {
	hub := stream.NewHub(0, nil)
	h := NewStreamHandler(hub, 5*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	r := asUser(httptest.NewRequest(http.MethodGet, "/v1/notifications/stream", nil).WithContext(ctx), "u1", domain.RoleUser)
	rr := httptest.NewRecorder()
	h.Stream(rr, r)

	assert.Contains(t, rr.Body.String(), "heartbeat")
}
