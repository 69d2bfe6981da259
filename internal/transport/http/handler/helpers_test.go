package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/school-notify/internal/application/dispatch"
	"github.com/school-notify/internal/application/scheduler"
	"github.com/school-notify/internal/config"
	"github.com/school-notify/internal/domain"
	jwtinfra "github.com/school-notify/internal/infrastructure/jwt"
	"github.com/school-notify/internal/transport/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockNotificationSvc struct{ mock.Mock }

func (m *mockNotificationSvc) List(ctx context.Context, userID string, q domain.RecordQuery) ([]domain.NotificationRecord, error) {
	args := m.Called(ctx, userID, q)
	recs, _ := args.Get(0).([]domain.NotificationRecord)
	return recs, args.Error(1)
}

func (m *mockNotificationSvc) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationSvc) SyncSince(ctx context.Context, userID string, since time.Time, limit int) ([]domain.NotificationRecord, error) {
	args := m.Called(ctx, userID, since, limit)
	recs, _ := args.Get(0).([]domain.NotificationRecord)
	return recs, args.Error(1)
}

func (m *mockNotificationSvc) MarkAsRead(ctx context.Context, userID, recordID string) (*domain.NotificationRecord, error) {
	args := m.Called(ctx, userID, recordID)
	if rec, _ := args.Get(0).(*domain.NotificationRecord); rec != nil {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotificationSvc) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockSchedulerSvc struct{ mock.Mock }

func (m *mockSchedulerSvc) Schedule(ctx context.Context, req domain.CreateScheduledRequest, createdBy string) (*domain.ScheduledNotification, error) {
	args := m.Called(ctx, req, createdBy)
	if n, _ := args.Get(0).(*domain.ScheduledNotification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSchedulerSvc) Get(ctx context.Context, id string) (*domain.ScheduledNotification, error) {
	args := m.Called(ctx, id)
	if n, _ := args.Get(0).(*domain.ScheduledNotification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSchedulerSvc) List(ctx context.Context, status domain.ScheduledStatus, limit int) ([]domain.ScheduledNotification, error) {
	args := m.Called(ctx, status, limit)
	items, _ := args.Get(0).([]domain.ScheduledNotification)
	return items, args.Error(1)
}

func (m *mockSchedulerSvc) ProcessDue(ctx context.Context, limit int) (*scheduler.Report, error) {
	args := m.Called(ctx, limit)
	if rep, _ := args.Get(0).(*scheduler.Report); rep != nil {
		return rep, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSchedulerSvc) Cancel(ctx context.Context, id, byUser string) (bool, error) {
	args := m.Called(ctx, id, byUser)
	return args.Bool(0), args.Error(1)
}

type mockDispatcher struct {
	mock.Mock
	registry domain.TypeRegistry
}

func (m *mockDispatcher) Send(ctx context.Context, req dispatch.Request) (*domain.DispatchResult, error) {
	args := m.Called(ctx, req)
	if res, _ := args.Get(0).(*domain.DispatchResult); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDispatcher) Registry() domain.TypeRegistry { return m.registry }

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

// bearerReq builds a request with a signed Bearer token for the given userID and role.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, userID, role string, body []byte) *http.Request {
	t.Helper()
	token, err := p.Sign(userID, role)
	require.NoError(t, err)
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// withURLParam injects a chi URL param into the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.Handler, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}

// asUser attaches claims directly, for tests that do not exercise the token path.
func asUser(r *http.Request, userID, role string) *http.Request {
	return r.WithContext(middleware.WithClaims(r.Context(), &jwtinfra.Claims{UserID: userID, Role: role}))
}
