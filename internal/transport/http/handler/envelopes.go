package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/pkg/validate"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

type UnreadCountEnvelope struct {
	Unread int `json:"unread"`
}

type UpdatedEnvelope struct {
	Updated int `json:"updated"`
}

// CancelEnvelope reports whether a cancel request changed the entry.
type CancelEnvelope struct {
	Cancelled bool   `json:"cancelled"`
	Message   string `json:"message,omitempty"`
}

type PreferencesEnvelope struct {
	Preferences map[domain.Channel]bool `json:"preferences"`
}

type TopicPushEnvelope struct {
	Topic     string `json:"topic"`
	MessageID string `json:"message_id"`
}

type SMSBalanceEnvelope struct {
	Provider string  `json:"provider"`
	Balance  float64 `json:"balance"`
}

type SMSStatusEnvelope struct {
	MessageID string                `json:"message_id"`
	Status    domain.DeliveryStatus `json:"status"`
}

type TypeEnvelope struct {
	Type      string           `json:"type"`
	Channels  []domain.Channel `json:"channels"`
	Important bool             `json:"important"`
}

type ProcessDueRequest struct {
	Limit int `json:"limit" validate:"required,min=1,max=1000"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// bind decodes the JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func bind(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

// queryInt returns the named query parameter, or fallback when it is absent or malformed.
func queryInt(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
