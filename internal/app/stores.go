package app

import (
	"context"
	"fmt"
	"time"

	"github.com/school-notify/internal/application/scheduler"
	"github.com/school-notify/internal/config"
	"github.com/school-notify/internal/domain"
	"github.com/school-notify/internal/infrastructure/dynamo"
	"github.com/school-notify/internal/infrastructure/memory"
	"github.com/school-notify/internal/infrastructure/postgres"
)

type recordStore interface {
	Insert(ctx context.Context, rec *domain.NotificationRecord) error
	Get(ctx context.Context, recordID string) (*domain.NotificationRecord, error)
	ListByRecipient(ctx context.Context, recipientID string, q domain.RecordQuery) ([]domain.NotificationRecord, error)
	ListSince(ctx context.Context, recipientID string, since time.Time, limit int) ([]domain.NotificationRecord, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, recordID string, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error)
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdatePreferences(ctx context.Context, userID string, prefs domain.ChannelPreferences) error
	UpdateTopics(ctx context.Context, userID string, topics []string) error
}

type deviceStore interface {
	Put(ctx context.Context, d *domain.Device) error
	Get(ctx context.Context, deviceID string) (*domain.Device, error)
	GetByToken(ctx context.Context, token string) (*domain.Device, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
	Disable(ctx context.Context, deviceID string) error
}

// stores is one backend's implementation of every repository.
type stores struct {
	scheduled scheduler.Store
	records   recordStore
	users     userStore
	devices   deviceStore
	ping      func(context.Context) error
	close     func() error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case "memory":
		return &stores{
			scheduled: memory.NewScheduledStore(),
			records:   memory.NewRecordStore(),
			users:     memory.NewUserStore(),
			devices:   memory.NewDeviceStore(),
		}, nil

	case "postgres":
		db, err := postgres.Open(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		return &stores{
			scheduled: postgres.NewScheduledStore(db),
			records:   postgres.NewRecordStore(db),
			users:     postgres.NewUserStore(db),
			devices:   postgres.NewDeviceStore(db),
			ping:      postgres.Ping(db),
			close:     sqlDB.Close,
		}, nil

	case "dynamo", "":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("dynamo client: %w", err)
		}
		// Creates tables if they don't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return &stores{
			scheduled: dynamo.NewScheduledRepo(client, cfg.DynamoTables.Scheduled),
			records:   dynamo.NewRecordRepo(client, cfg.DynamoTables.Notifications),
			users:     dynamo.NewUserRepo(client, cfg.DynamoTables.Users),
			devices:   dynamo.NewDeviceRepo(client, cfg.DynamoTables.Devices),
			ping:      dynamo.Ping(client, cfg.DynamoTables.Scheduled),
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
