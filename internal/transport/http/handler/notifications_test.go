package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/school-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNotificationList_MissingClaims(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationSvc{})
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/v1/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNotificationList_PassesQuery(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("List", mock.Anything, "u1", domain.RecordQuery{Limit: 20, UnreadOnly: true}).
		Return([]domain.NotificationRecord{{ID: "n1", RecipientID: "u1"}}, nil)
	h := NewNotificationHandler(svc)

	r := bearerReq(t, p, http.MethodGet, "/v1/notifications?limit=20&unread_only=true", "u1", domain.RoleUser, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got []domain.NotificationRecord
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "n1", got[0].ID)
	svc.AssertExpectations(t)
}

func TestNotificationList_EmptyIsArray(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("List", mock.Anything, "u1", mock.Anything).Return(nil, nil)
	h := NewNotificationHandler(svc)

	rr := httptest.NewRecorder()
	h.List(rr, asUser(httptest.NewRequest(http.MethodGet, "/v1/notifications", nil), "u1", domain.RoleUser))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestNotificationSync_ParsesSince(t *testing.T) {
	since := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := &mockNotificationSvc{}
	svc.On("SyncSince", mock.Anything, "u1", since, 0).Return([]domain.NotificationRecord{}, nil)
	h := NewNotificationHandler(svc)

	r := httptest.NewRequest(http.MethodGet, "/v1/notifications/sync?since=2026-03-10T08:00:00Z", nil)
	rr := httptest.NewRecorder()
	h.Sync(rr, asUser(r, "u1", domain.RoleUser))
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestNotificationSync_BadSince(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationSvc{})
	r := httptest.NewRequest(http.MethodGet, "/v1/notifications/sync?since=yesterday", nil)
	rr := httptest.NewRecorder()
	h.Sync(rr, asUser(r, "u1", domain.RoleUser))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNotificationMarkAsRead_NotFound(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("MarkAsRead", mock.Anything, "u1", "n9").Return(nil, fmt.Errorf("record n9: %w", domain.ErrNotFound))
	h := NewNotificationHandler(svc)

	r := withURLParam(httptest.NewRequest(http.MethodPut, "/v1/notifications/n9/read", nil), "id", "n9")
	rr := httptest.NewRecorder()
	h.MarkAsRead(rr, asUser(r, "u1", domain.RoleUser))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	svc.AssertExpectations(t)
}

func TestNotificationMarkAllAsRead(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("MarkAllAsRead", mock.Anything, "u1").Return(3, nil)
	h := NewNotificationHandler(svc)

	rr := httptest.NewRecorder()
	h.MarkAllAsRead(rr, asUser(httptest.NewRequest(http.MethodPut, "/v1/notifications/read-all", nil), "u1", domain.RoleUser))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"updated":3}`, rr.Body.String())
}

func TestNotificationUnreadCount_StoreFailureIs500(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("UnreadCount", mock.Anything, "u1").Return(0, fmt.Errorf("dynamo: throttled"))
	h := NewNotificationHandler(svc)

	rr := httptest.NewRecorder()
	h.UnreadCount(rr, asUser(httptest.NewRequest(http.MethodGet, "/v1/notifications/unread-count", nil), "u1", domain.RoleUser))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "throttled")
}
