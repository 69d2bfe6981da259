package http

import (
	"context"
	"log/slog"

	"github.com/school-notify/internal/application/device"
	"github.com/school-notify/internal/application/dispatch"
	"github.com/school-notify/internal/application/notification"
	"github.com/school-notify/internal/application/recipient"
	"github.com/school-notify/internal/application/scheduler"
	"github.com/school-notify/internal/channel"
	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/transport/http/handler"
	"github.com/school-notify/internal/transport/http/middleware"
)

// Dispatcher is the minimal interface the router requires from the dispatcher.
type Dispatcher interface {
	Send(ctx context.Context, req dispatch.Request) (*domain.DispatchResult, error)
	Registry() domain.TypeRegistry
}

// RecordStream is the minimal interface the router requires from the live record fan-out.
type RecordStream interface {
	Subscribe(userID string) (<-chan domain.NotificationRecord, func())
}

// Deps holds every service the router exposes.
type Deps struct {
	Notifications notification.Service
	Scheduler     scheduler.Service
	Dispatcher    Dispatcher
	Devices       device.Service
	Preferences   recipient.Service
	Stream        RecordStream
	SMS           channel.SMSProvider
	Push          channel.PushGateway
	// Verifier checks bearer tokens. Nil disables authentication, which is
	// only acceptable in development.
	Verifier middleware.TokenVerifier
	Checks   map[string]handler.Check
	Logger   *slog.Logger
}
