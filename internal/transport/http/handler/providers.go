package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/school-notify/internal/channel"
	"github.com/school-notify/internal/domain"
)

type topicPusher interface {
	SendToTopic(ctx context.Context, topic string, m channel.PushMessage) (string, error)
}

// ProviderHandler exposes the auxiliary SMS and push provider operations.
type ProviderHandler struct {
	sms  channel.SMSProvider
	push topicPusher
}

func NewProviderHandler(sms channel.SMSProvider, push topicPusher) *ProviderHandler {
	return &ProviderHandler{sms: sms, push: push}
}

func (h *ProviderHandler) SMSBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.sms.Balance(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SMSBalanceEnvelope{Provider: h.sms.Name(), Balance: balance})
}

func (h *ProviderHandler) SMSStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := h.sms.Status(r.Context(), id)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SMSStatusEnvelope{MessageID: id, Status: status})
}

func (h *ProviderHandler) PushTopic(w http.ResponseWriter, r *http.Request) {
	var req domain.TopicPushRequest
	if !bind(w, r, &req) {
		return
	}
	topic := chi.URLParam(r, "topic")
	messageID, err := h.push.SendToTopic(r.Context(), topic, channel.PushMessage{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TopicPushEnvelope{Topic: topic, MessageID: messageID})
}
