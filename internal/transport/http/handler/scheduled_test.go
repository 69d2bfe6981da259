package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/school-notify/internal/application/scheduler"
	"github.com/school-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScheduledCreate_ValidationFailure(t *testing.T) {
	h := NewScheduledHandler(&mockSchedulerSvc{})
	body, _ := json.Marshal(domain.CreateScheduledRequest{Name: "Exam reminder"}) // no type, no recipients
	r := httptest.NewRequest(http.MethodPost, "/v1/scheduled-notifications", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, asUser(r, "admin1", domain.RoleAdmin))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestScheduledCreate_InvalidScheduleIs422(t *testing.T) {
	svc := &mockSchedulerSvc{}
	svc.On("Schedule", mock.Anything, mock.Anything, "admin1").
		Return(nil, fmt.Errorf("once at past time: %w", domain.ErrInvalidSchedule))
	h := NewScheduledHandler(svc)

	body, _ := json.Marshal(domain.CreateScheduledRequest{
		Name: "Exam reminder", Type: "exam.reminder", Recipients: []string{"u1"},
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/scheduled-notifications", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, asUser(r, "admin1", domain.RoleAdmin))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	svc.AssertExpectations(t)
}

func TestScheduledCreate_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockSchedulerSvc{}
	created := &domain.ScheduledNotification{ID: "s1", Status: domain.StatusPending}
	svc.On("Schedule", mock.Anything, mock.MatchedBy(func(req domain.CreateScheduledRequest) bool {
		return req.Type == "fee.due" && len(req.Recipients) == 2
	}), "admin1").Return(created, nil)
	h := NewScheduledHandler(svc)

	body, _ := json.Marshal(domain.CreateScheduledRequest{
		Name: "Fees", Type: "fee.due", Recipients: []string{"u1", "u2"}, Channels: []string{"mail"},
	})
	r := bearerReq(t, p, http.MethodPost, "/v1/scheduled-notifications", "admin1", domain.RoleAdmin, body)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Create), rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var got domain.ScheduledNotification
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "s1", got.ID)
	svc.AssertExpectations(t)
}

func TestScheduledCancel_AdminSkipsOwnership(t *testing.T) {
	svc := &mockSchedulerSvc{}
	svc.On("Cancel", mock.Anything, "s1", "").Return(true, nil)
	h := NewScheduledHandler(svc)

	r := withURLParam(httptest.NewRequest(http.MethodDelete, "/v1/scheduled-notifications/s1", nil), "id", "s1")
	rr := httptest.NewRecorder()
	h.Cancel(rr, asUser(r, "admin1", domain.RoleAdmin))
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestScheduledCancel_OwnerOnly(t *testing.T) {
	svc := &mockSchedulerSvc{}
	svc.On("Cancel", mock.Anything, "s1", "u2").Return(false, fmt.Errorf("scheduled s1: %w", domain.ErrNotFound))
	h := NewScheduledHandler(svc)

	r := withURLParam(httptest.NewRequest(http.MethodDelete, "/v1/scheduled-notifications/s1", nil), "id", "s1")
	rr := httptest.NewRecorder()
	h.Cancel(rr, asUser(r, "u2", domain.RoleUser))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	svc.AssertExpectations(t)
}

func TestScheduledCancel_NotPendingIsConflict(t *testing.T) {
	svc := &mockSchedulerSvc{}
	svc.On("Cancel", mock.Anything, "s1", "").Return(false, nil)
	h := NewScheduledHandler(svc)

	r := withURLParam(httptest.NewRequest(http.MethodDelete, "/v1/scheduled-notifications/s1", nil), "id", "s1")
	rr := httptest.NewRecorder()
	h.Cancel(rr, asUser(r, "admin1", domain.RoleAdmin))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestScheduledProcessDue_ReturnsReport(t *testing.T) {
	svc := &mockSchedulerSvc{}
	svc.On("ProcessDue", mock.Anything, 25).Return(&scheduler.Report{
		Processed: 2, Succeeded: 1, Failed: 1, Errors: map[string]string{"s2": "all 1 deliveries failed: smtp down"},
	}, nil)
	h := NewScheduledHandler(svc)

	r := httptest.NewRequest(http.MethodPost, "/v1/scheduled-notifications/process", bytes.NewBufferString(`{"limit":25}`))
	rr := httptest.NewRecorder()
	h.ProcessDue(rr, asUser(r, "admin1", domain.RoleAdmin))

	assert.Equal(t, http.StatusOK, rr.Code)
	var got scheduler.Report
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, 2, got.Processed)
	assert.Contains(t, got.Errors["s2"], "smtp down")
}

func TestScheduledProcessDue_RejectsZeroLimit(t *testing.T) {
	h := NewScheduledHandler(&mockSchedulerSvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/scheduled-notifications/process", bytes.NewBufferString(`{"limit":0}`))
	rr := httptest.NewRecorder()
	h.ProcessDue(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestScheduledList_BadStatus(t *testing.T) {
	svc := &mockSchedulerSvc{}
	svc.On("List", mock.Anything, domain.ScheduledStatus("archived"), 100).
		Return(nil, fmt.Errorf(`status "archived": %w`, domain.ErrBadRequest))
	h := NewScheduledHandler(svc)

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/v1/scheduled-notifications?status=archived", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
