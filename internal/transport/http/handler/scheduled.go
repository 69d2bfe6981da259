package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/school-notify/internal/application/scheduler"
	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/transport/http/middleware"
)

// ScheduledHandler manages deferred and recurring notifications.
type ScheduledHandler struct {
	svc scheduler.Service
}

func NewScheduledHandler(svc scheduler.Service) *ScheduledHandler {
	return &ScheduledHandler{svc: svc}
}

func (h *ScheduledHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateScheduledRequest
	if !bind(w, r, &req) {
		return
	}
	n, err := h.svc.Schedule(r.Context(), req, claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *ScheduledHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.ScheduledStatus(r.URL.Query().Get("status"))
	items, err := h.svc.List(r.Context(), status, queryInt(r, "limit", 100))
	if err != nil {
		httpError(w, err)
		return
	}
	if items == nil {
		items = []domain.ScheduledNotification{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ScheduledHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Cancel is open to admins and to the user who created the entry.
func (h *ScheduledHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	byUser := claims.UserID
	if claims.Role == domain.RoleAdmin {
		byUser = ""
	}
	cancelled, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), byUser)
	if err != nil {
		httpError(w, err)
		return
	}
	if !cancelled {
		writeJSON(w, http.StatusConflict, CancelEnvelope{Message: "only pending notifications can be cancelled"})
		return
	}
	writeJSON(w, http.StatusOK, CancelEnvelope{Cancelled: true})
}

// ProcessDue runs one batch synchronously and returns its report.
func (h *ScheduledHandler) ProcessDue(w http.ResponseWriter, r *http.Request) {
	var req ProcessDueRequest
	if !bind(w, r, &req) {
		return
	}
	report, err := h.svc.ProcessDue(r.Context(), req.Limit)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
