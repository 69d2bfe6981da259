package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/school-notify/internal/config"
	"github.com/school-notify/internal/domain"
	jwtinfra "github.com/school-notify/internal/infrastructure/jwt"
	"github.com/school-notify/internal/transport/http/handler"
	appmiddleware "github.com/school-notify/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds the
// background work of the rate limiters.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var authMw func(http.Handler) http.Handler
	if deps.Verifier != nil {
		authMw = appmiddleware.Auth(deps.Verifier)
	} else {
		logger.Warn("authentication disabled, every request runs as the development admin")
		authMw = devAuth
	}

	// 5 requests/second, burst of 10, applied to endpoints that fan out to providers.
	sendRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	healthH := handler.NewHealthHandler(deps.Checks)
	notifH := handler.NewNotificationHandler(deps.Notifications)
	streamH := handler.NewStreamHandler(deps.Stream, handler.DefaultHeartbeat, logger)
	schedH := handler.NewScheduledHandler(deps.Scheduler)
	dispatchH := handler.NewDispatchHandler(deps.Dispatcher)
	deviceH := handler.NewDeviceHandler(deps.Devices)
	prefH := handler.NewPreferencesHandler(deps.Preferences)
	providerH := handler.NewProviderHandler(deps.SMS, deps.Push)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/ready", healthH.Ready)
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/notifications", notifH.List)
			r.Get("/notifications/unread-count", notifH.UnreadCount)
			r.Get("/notifications/sync", notifH.Sync)
			r.Get("/notifications/stream", streamH.Stream)
			r.Put("/notifications/read-all", notifH.MarkAllAsRead)
			r.Put("/notifications/{id}/read", notifH.MarkAsRead)

			r.Get("/preferences", prefH.Get)
			r.Put("/preferences", prefH.Update)

			r.Get("/devices", deviceH.List)
			r.Post("/devices", deviceH.Register)
			r.Delete("/devices/{id}", deviceH.Delete)
			r.Post("/devices/topics", deviceH.Subscribe)
			r.Delete("/devices/topics/{topic}", deviceH.Unsubscribe)

			r.Get("/notification-types", dispatchH.Types)
			r.Delete("/scheduled-notifications/{id}", schedH.Cancel)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/scheduled-notifications", schedH.Create)
				r.Get("/scheduled-notifications", schedH.List)
				r.Get("/scheduled-notifications/{id}", schedH.Get)
				r.With(sendRL.Limit).Post("/scheduled-notifications/process", schedH.ProcessDue)
				r.With(sendRL.Limit).Post("/dispatch", dispatchH.Send)
				r.With(sendRL.Limit).Post("/push/topics/{topic}", providerH.PushTopic)
				r.Get("/sms/balance", providerH.SMSBalance)
				r.Get("/sms/messages/{id}", providerH.SMSStatus)
			})
		})
	})

	return r
}

// devAuth stands in for Auth when no verifier is configured. The caller may
// pick a user with X-User-ID.
func devAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			userID = "dev-admin"
		}
		claims := &jwtinfra.Claims{UserID: userID, Role: domain.RoleAdmin}
		next.ServeHTTP(w, r.WithContext(appmiddleware.WithClaims(r.Context(), claims)))
	})
}
