package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/school-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var claimUpdate = regexp.QuoteMeta(`UPDATE "scheduled_notification" SET `) +
	`.*"status"=\$\d+.*WHERE \(?id = \$\d+ AND status = \$\d+\)?`

func newMockStore(t *testing.T) (*ScheduledStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	return NewScheduledStore(db), mock
}

func TestScheduledStore_TransitionClaimIsExclusive(t *testing.T) {
	store, mock := newMockStore(t)
	claim := domain.StatusChange{Status: domain.StatusProcessing, UpdatedAt: time.Now()}

	mock.ExpectExec(claimUpdate).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(claimUpdate).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Transition(context.Background(), "s1", domain.StatusPending, claim))

	err := store.Transition(context.Background(), "s1", domain.StatusPending, claim)
	assert.ErrorIs(t, err, domain.ErrClaimConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledStore_TransitionReturnsDatabaseError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(claimUpdate).WillReturnError(errors.New("connection reset"))

	err := store.Transition(context.Background(), "s1", domain.StatusPending, domain.StatusChange{Status: domain.StatusProcessing})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrClaimConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledStore_TransitionWritesRunBookkeeping(t *testing.T) {
	store, mock := newMockStore(t)
	next := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	runCount := 3
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "scheduled_notification" SET `) +
		`.*"run_count"=\$\d+.*"scheduled_at"=\$\d+.*"status"=\$\d+.*WHERE \(?id = \$\d+ AND status = \$\d+\)?`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Transition(context.Background(), "s1", domain.StatusProcessing, domain.StatusChange{
		Status:      domain.StatusPending,
		ScheduledAt: &next,
		RunCount:    &runCount,
		UpdatedAt:   next,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
