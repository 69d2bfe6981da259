// Package app wires configuration into a running notification service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/school-notify/internal/application/device"
	"github.com/school-notify/internal/application/dispatch"
	"github.com/school-notify/internal/application/notification"
	"github.com/school-notify/internal/application/recipient"
	"github.com/school-notify/internal/application/scheduler"
	"github.com/school-notify/internal/application/stream"
	"github.com/school-notify/internal/channel"
	"github.com/school-notify/internal/config"
	jwtinfra "github.com/school-notify/internal/infrastructure/jwt"
	"github.com/school-notify/internal/infrastructure/kafka"
	"github.com/school-notify/internal/infrastructure/smtp"
	transporthttp "github.com/school-notify/internal/transport/http"
	"github.com/school-notify/internal/transport/http/handler"
)

type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Dispatcher *dispatch.Dispatcher
	Engine     *scheduler.Engine
	Runner     *scheduler.Runner
	Hub        *stream.Hub
	SMS        channel.SMSProvider
	Push       channel.PushGateway
	// JWT is nil when no public key could be loaded outside production.
	JWT *jwtinfra.Provider

	stores  *stores
	checks  map[string]handler.Check
	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger, checks: make(map[string]handler.Check)}

	registry, err := config.LoadTypeRegistry(cfg.TypesFile)
	if err != nil {
		return nil, err
	}

	a.stores, err = openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if a.stores.close != nil {
		a.closers = append(a.closers, a.stores.close)
	}
	if a.stores.ping != nil {
		a.checks["store"] = a.stores.ping
	}

	if a.SMS, err = newSMSProvider(cfg, logger); err != nil {
		return nil, a.fail(err)
	}
	if a.Push, err = newPushGateway(ctx, cfg, logger); err != nil {
		return nil, a.fail(err)
	}
	templates := loadTemplates(ctx, cfg, logger)

	a.Hub = stream.NewHub(stream.DefaultBuffer, logger)
	publishers := []channel.RecordPublisher{a.Hub}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, a.fail(fmt.Errorf("kafka producer: %w", err))
		}
		pub := kafka.NewPublisher(producer, cfg.KafkaTopic)
		publishers = append(publishers, pub)
		a.closers = append(a.closers, pub.Close)
	}

	a.Dispatcher = dispatch.New(dispatch.Deps{
		Registry: registry,
		Senders: []channel.Sender{
			channel.NewDatabaseSender(a.stores.records, logger, publishers...),
			channel.NewMailSender(smtp.NewMailer(cfg), templates),
			channel.NewSMSSender(a.SMS, templates, cfg.SMSDefaultRegion),
			channel.NewPushSender(a.Push, templates),
		},
		Recipients:  recipient.NewDirectory(a.stores.users, a.stores.devices),
		Observer:    dispatch.NewLogObserver(logger),
		Timeout:     cfg.ChannelTimeout,
		Concurrency: cfg.DispatchWorkers,
	})

	a.Engine = scheduler.NewEngine(scheduler.Deps{
		Store:      a.stores.scheduled,
		Dispatcher: a.Dispatcher,
		Registry:   registry,
		Logger:     logger,
	})
	a.Runner = scheduler.NewRunner(a.Engine, cfg.Scheduler.Interval, cfg.Scheduler.BatchSize, logger)
	a.Engine.SetOnSchedule(a.Runner.Refresh)

	a.JWT, err = jwtinfra.NewProvider(cfg)
	if err != nil {
		if cfg.AppEnv == "production" {
			return nil, a.fail(fmt.Errorf("jwt provider: %w", err))
		}
		logger.Warn("JWT provider not available", "err", err)
		a.JWT = nil
	}
	return a, nil
}

// RouterDeps exposes the services to the HTTP layer.
func (a *App) RouterDeps() *transporthttp.Deps {
	deps := &transporthttp.Deps{
		Notifications: notification.NewService(a.stores.records),
		Scheduler:     a.Engine,
		Dispatcher:    a.Dispatcher,
		Devices: device.NewService(device.ServiceDeps{
			DeviceRepo: a.stores.devices,
			UserRepo:   a.stores.users,
			Topics:     a.Push,
		}),
		Preferences: recipient.NewService(a.stores.users),
		Stream:      a.Hub,
		SMS:         a.SMS,
		Push:        a.Push,
		Checks:      a.checks,
		Logger:      a.Logger,
	}
	if a.JWT != nil {
		deps.Verifier = a.JWT
	}
	return deps
}

// Close releases every connection opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func (a *App) fail(err error) error {
	return errors.Join(err, a.Close())
}
