package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/school-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL", "")
	t.Setenv("KAFKA_BROKERS", "")
	cfg := Load()
	assert.Equal(t, "dynamo", cfg.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.ChannelTimeout)
	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL", "15s")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CHANNEL_TIMEOUT", "not-a-duration")
	cfg := Load()
	assert.Equal(t, 15*time.Second, cfg.Scheduler.Interval)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.ChannelTimeout)
}

func TestLoadTypeRegistry_EmptyPathUsesDefaults(t *testing.T) {
	r, err := LoadTypeRegistry("")
	require.NoError(t, err)
	_, ok := r.Lookup("exam.reminder")
	assert.True(t, ok)
}

func TestLoadTypeRegistry_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	body := "types:\n  exam.reminder:\n    channels: [database, push]\n    important: true\n  club.news:\n    channels: [database]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	r, err := LoadTypeRegistry(path)
	require.NoError(t, err)

	def, ok := r.Lookup("exam.reminder")
	require.True(t, ok)
	assert.Equal(t, []domain.Channel{domain.ChannelDatabase, domain.ChannelPush}, def.Channels)
	assert.True(t, def.Important)
	assert.Equal(t, []string{"club.news", "exam.reminder"}, r.Types())
}

func TestLoadTypeRegistry_BadChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte("types:\n  x:\n    channels: [fax]\n"), 0600))
	_, err := LoadTypeRegistry(path)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}
