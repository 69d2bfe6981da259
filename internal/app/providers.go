package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/school-notify/internal/channel"
	"github.com/school-notify/internal/config"
	"github.com/school-notify/internal/infrastructure/fcm"
	s3infra "github.com/school-notify/internal/infrastructure/s3"
	"github.com/school-notify/internal/infrastructure/sns"
	"github.com/school-notify/internal/infrastructure/twilio"
)

func newSMSProvider(cfg *config.Config, logger *slog.Logger) (channel.SMSProvider, error) {
	switch cfg.SMSDriver {
	case "log", "":
		return channel.NewLogSMSProvider(logger), nil
	case "sns":
		return sns.NewProvider(cfg)
	case "twilio":
		return twilio.NewClient(cfg.Twilio)
	}
	return nil, fmt.Errorf("unknown SMS_DRIVER %q", cfg.SMSDriver)
}

func newPushGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (channel.PushGateway, error) {
	switch cfg.PushDriver {
	case "log", "":
		return channel.NewLogPushGateway(logger), nil
	case "fcm":
		return fcm.NewClient(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown PUSH_DRIVER %q", cfg.PushDriver)
}

// loadTemplates starts from the built-in templates and overlays the bucket
// contents when one is configured. A bucket failure keeps the defaults.
func loadTemplates(ctx context.Context, cfg *config.Config, logger *slog.Logger) *channel.TemplateStore {
	store := channel.NewTemplateStore()
	if cfg.TemplatesBucket == "" {
		return store
	}
	bucket := s3infra.NewTemplateBucket(s3infra.NewClient(cfg), cfg.TemplatesBucket, cfg.TemplatesPrefix)
	n, err := store.Load(ctx, bucket)
	if err != nil {
		logger.Warn("template bucket unavailable, using built-in templates", "bucket", cfg.TemplatesBucket, "err", err)
		return store
	}
	logger.Info("templates loaded", "bucket", cfg.TemplatesBucket, "count", n)
	return store
}
