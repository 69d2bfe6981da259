package handler

import (
	"net/http"

	"github.com/school-notify/internal/application/recipient"
	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/transport/http/middleware"
)

type PreferencesHandler struct {
	svc recipient.Service
}

func NewPreferencesHandler(svc recipient.Service) *PreferencesHandler {
	return &PreferencesHandler{svc: svc}
}

func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	prefs, err := h.svc.GetPreferences(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PreferencesEnvelope{Preferences: prefs})
}

func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdatePreferencesRequest
	if !bind(w, r, &req) {
		return
	}
	prefs, err := h.svc.UpdatePreferences(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PreferencesEnvelope{Preferences: prefs})
}
