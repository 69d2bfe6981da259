package streamclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tmaxmax/go-sse"

	"github.com/school-notify/internal/domain"
)

var ErrStreamClosed = errors.New("stream closed by server")

// HTTPTransport talks to the inbox endpoints under baseURL with a bearer token.
// It remembers the last event id across reconnects.
type HTTPTransport struct {
	baseURL string
	token   string
	client  *http.Client

	mu          sync.Mutex
	lastEventID string
}

func NewHTTPTransport(baseURL, token string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

func (t *HTTPTransport) List(ctx context.Context, limit int) ([]domain.NotificationRecord, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []domain.NotificationRecord
	err := t.do(ctx, http.MethodGet, "/v1/notifications", q, &out)
	return out, err
}

func (t *HTTPTransport) SyncSince(ctx context.Context, since time.Time) ([]domain.NotificationRecord, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339Nano))
	}
	var out []domain.NotificationRecord
	err := t.do(ctx, http.MethodGet, "/v1/notifications/sync", q, &out)
	return out, err
}

func (t *HTTPTransport) MarkAsRead(ctx context.Context, id string) error {
	return t.do(ctx, http.MethodPut, "/v1/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (t *HTTPTransport) MarkAllAsRead(ctx context.Context) error {
	return t.do(ctx, http.MethodPut, "/v1/notifications/read-all", nil, nil)
}

// Connect opens the SSE endpoint. The returned stream owns the response body.
func (t *HTTPTransport) Connect(ctx context.Context) (EventStream, error) {
	req, err := t.request(ctx, http.MethodGet, "/v1/notifications/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if id := t.LastEventID(); id != "" {
		req.Header.Set("Last-Event-ID", id)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	next, stop := iter.Pull2(sse.Read(resp.Body, nil))
	return &sseStream{body: resp.Body, next: next, stop: stop, seen: t.setLastEventID}, nil
}

// LastEventID is the id of the newest event received on any connection.
func (t *HTTPTransport) LastEventID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastEventID
}

func (t *HTTPTransport) setLastEventID(id string) {
	t.mu.Lock()
	t.lastEventID = id
	t.mu.Unlock()
}

func (t *HTTPTransport) request(ctx context.Context, method, path string, q url.Values) (*http.Request, error) {
	u := t.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	return req, nil
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, q url.Values, out any) error {
	req, err := t.request(ctx, method, path, q)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	if body.Error != "" {
		return fmt.Errorf("%s: %d %s", resp.Request.URL.Path, resp.StatusCode, body.Error)
	}
	return fmt.Errorf("%s: %d", resp.Request.URL.Path, resp.StatusCode)
}

type sseStream struct {
	body io.ReadCloser
	next func() (sse.Event, error, bool)
	stop func()
	seen func(id string)
}

// Next returns the next "notification" event. Comments are heartbeats and
// events of other types are skipped.
func (s *sseStream) Next(ctx context.Context) (domain.NotificationRecord, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.NotificationRecord{}, err
		}
		ev, err, ok := s.next()
		if !ok || errors.Is(err, io.EOF) {
			return domain.NotificationRecord{}, ErrStreamClosed
		}
		if err != nil {
			return domain.NotificationRecord{}, err
		}
		if ev.LastEventID != "" {
			s.seen(ev.LastEventID)
		}
		if (ev.Type != "" && ev.Type != "notification") || ev.Data == "" {
			continue
		}
		var rec domain.NotificationRecord
		if err := json.Unmarshal([]byte(ev.Data), &rec); err != nil {
			return domain.NotificationRecord{}, fmt.Errorf("decode event: %w", err)
		}
		return rec, nil
	}
}

func (s *sseStream) Close() error {
	err := s.body.Close()
	s.stop()
	return err
}
