package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/school-notify/internal/application/notification"
	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/transport/http/middleware"
)

// NotificationHandler serves the caller's inbox.
type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread_only"))
	records, err := h.svc.List(r.Context(), claims.UserID, domain.RecordQuery{
		Limit:      queryInt(r, "limit", 0),
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	if records == nil {
		records = []domain.NotificationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.svc.UnreadCount(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadCountEnvelope{Unread: n})
}

// Sync returns records created after ?since= (RFC 3339), oldest first.
func (h *NotificationHandler) Sync(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = t
	}
	records, err := h.svc.SyncSince(r.Context(), claims.UserID, since, queryInt(r, "limit", 0))
	if err != nil {
		httpError(w, err)
		return
	}
	if records == nil {
		records = []domain.NotificationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.svc.MarkAsRead(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.svc.MarkAllAsRead(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UpdatedEnvelope{Updated: n})
}
