package handler

import (
	"context"
	"net/http"

	"github.com/school-notify/internal/application/dispatch"
	"github.com/school-notify/internal/domain"
)

type dispatcher interface {
	Send(ctx context.Context, req dispatch.Request) (*domain.DispatchResult, error)
	Registry() domain.TypeRegistry
}

// DispatchHandler sends ad-hoc notifications and lists the known types.
type DispatchHandler struct {
	dispatcher dispatcher
}

func NewDispatchHandler(d dispatcher) *DispatchHandler {
	return &DispatchHandler{dispatcher: d}
}

func (h *DispatchHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.DispatchRequest
	if !bind(w, r, &req) {
		return
	}
	channels, err := domain.ParseChannels(req.Channels)
	if err != nil {
		httpError(w, err)
		return
	}
	res, err := h.dispatcher.Send(r.Context(), dispatch.Request{
		Type:       req.Type,
		Recipients: req.Recipients,
		Channels:   channels,
		Data:       req.Data,
		OriginID:   req.OriginID,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *DispatchHandler) Types(w http.ResponseWriter, _ *http.Request) {
	reg := h.dispatcher.Registry()
	names := reg.Types()
	out := make([]TypeEnvelope, 0, len(names))
	for _, name := range names {
		def, _ := reg.Lookup(name)
		out = append(out, TypeEnvelope{Type: name, Channels: def.Channels, Important: def.Important})
	}
	writeJSON(w, http.StatusOK, out)
}
