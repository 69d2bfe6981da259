package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/school-notify/internal/domain"
	jwtinfra "github.com/school-notify/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withRole(r *http.Request, role string) *http.Request {
	return r.WithContext(WithClaims(r.Context(), &jwtinfra.Claims{UserID: "u1", Role: role}))
}

func TestRequireRole_NoClaimsInContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	RequireRole(domain.RoleAdmin)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		role    string
		want    int
	}{
		{"user on admin route", []string{domain.RoleAdmin}, domain.RoleUser, http.StatusForbidden},
		{"admin on admin route", []string{domain.RoleAdmin}, domain.RoleAdmin, http.StatusOK},
		{"user on shared route", []string{domain.RoleAdmin, domain.RoleUser}, domain.RoleUser, http.StatusOK},
		{"empty role", []string{domain.RoleAdmin}, "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RequireRole(tt.allowed...)(http.HandlerFunc(okHandler)).ServeHTTP(rr, withRole(httptest.NewRequest(http.MethodGet, "/", nil), tt.role))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

// The scheduling and dispatch endpoints sit behind RequireRole(admin) while
// the inbox stays open to every authenticated user.
func TestRequireRole_AdminOnlyNotificationRoutes(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/v1/notifications", okHandler)
	r.Group(func(r chi.Router) {
		r.Use(RequireRole(domain.RoleAdmin))
		r.Post("/v1/scheduled-notifications", okHandler)
		r.Post("/v1/scheduled-notifications/process", okHandler)
		r.Post("/v1/dispatch", okHandler)
		r.Get("/v1/sms/balance", okHandler)
	})

	for _, path := range []string{"/v1/scheduled-notifications", "/v1/scheduled-notifications/process", "/v1/dispatch"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, withRole(httptest.NewRequest(http.MethodPost, path, nil), domain.RoleUser))
		assert.Equal(t, http.StatusForbidden, rr.Code, path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "forbidden", body["error"])

		rr = httptest.NewRecorder()
		r.ServeHTTP(rr, withRole(httptest.NewRequest(http.MethodPost, path, nil), domain.RoleAdmin))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, withRole(httptest.NewRequest(http.MethodGet, "/v1/sms/balance", nil), domain.RoleUser))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, withRole(httptest.NewRequest(http.MethodGet, "/v1/notifications", nil), domain.RoleUser))
	assert.Equal(t, http.StatusOK, rr.Code)
}
