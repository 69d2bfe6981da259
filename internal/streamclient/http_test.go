package streamclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/school-notify/internal/domain"
)

func TestHTTPTransport_StreamParsesEvents(t *testing.T) {
	payload, err := json.Marshal(rec("n1", 1, true))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/notifications/stream", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": heartbeat\n\n")
		fmt.Fprint(w, "retry: 5000\nevent: ready\ndata: {}\n\n")
		fmt.Fprintf(w, "id: n1\r\nevent: notification\r\ndata: %s\r\n\r\n", payload)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL+"/", "tok", srv.Client())
	stream, err := tr.Connect(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	got, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "n1", got.ID)
	assert.True(t, got.Important)
	assert.Equal(t, "n1", tr.LastEventID())

	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestHTTPTransport_ConnectRejectsNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"unauthorized"}`)
	}))
	defer srv.Close()

	_, err := NewHTTPTransport(srv.URL, "", srv.Client()).Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401 unauthorized")
}

func TestHTTPTransport_SyncSinceSendsTimestamp(t *testing.T) {
	since := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/notifications/sync", r.URL.Path)
		assert.Equal(t, "2026-03-10T08:30:00Z", r.URL.Query().Get("since"))
		_ = json.NewEncoder(w).Encode([]domain.NotificationRecord{rec("n9", 45, false)})
	}))
	defer srv.Close()

	got, err := NewHTTPTransport(srv.URL, "tok", srv.Client()).SyncSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "n9", got[0].ID)
}

func TestHTTPTransport_MarkAsRead(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"id":"n1"}`)
	}))
	defer srv.Close()

	require.NoError(t, NewHTTPTransport(srv.URL, "tok", srv.Client()).MarkAsRead(context.Background(), "n1"))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/v1/notifications/n1/read", path)
}

func TestHTTPTransport_ReconnectSendsLastEventID(t *testing.T) {
	payload, err := json.Marshal(rec("n7", 7, false))
	require.NoError(t, err)

	var resumed []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resumed = append(resumed, r.Header.Get("Last-Event-ID"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "id: n7\nevent: notification\ndata: %s\n\n", payload)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, "tok", srv.Client())
	for range 2 {
		stream, err := tr.Connect(context.Background())
		require.NoError(t, err)
		_, err = stream.Next(context.Background())
		require.NoError(t, err)
		require.NoError(t, stream.Close())
	}

	assert.Equal(t, []string{"", "n7"}, resumed)
}

func TestHTTPTransport_MultiLineData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: notification\ndata: {\"id\":\"n3\",\ndata: \"type\":\"club.news\"}\n\n")
	}))
	defer srv.Close()

	stream, err := NewHTTPTransport(srv.URL, "", srv.Client()).Connect(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	got, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "n3", got.ID)
	assert.Equal(t, "club.news", got.Type)
}
