package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 20, cfg.Outbox.BatchSize)
	assert.Equal(t, 60*time.Second, cfg.Outbox.RetryDelay)
	assert.Equal(t, 10, cfg.Outbox.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Outbox.LockTimeout)
	assert.Equal(t, 300*time.Second, cfg.Health.PendingAgeWarn)
	assert.Equal(t, int64(20), cfg.Health.FailedWarnCount)
	assert.Equal(t, int64(100), cfg.Health.QueuedWarnCount)
	assert.Equal(t, "https://onesignal.com/api/v1/notifications", cfg.Push.URL)
	assert.Equal(t, 10*time.Second, cfg.Push.Timeout)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
push:
  api_key: secret
  app_id: app-123
outbox:
  retry_delay: 30s
  max_attempts: 3
health:
  failed_warn_count: 5
`))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Push.APIKey)
	assert.Equal(t, "app-123", cfg.Push.AppID)
	assert.Equal(t, 30*time.Second, cfg.Outbox.RetryDelay)
	assert.Equal(t, 3, cfg.Outbox.MaxAttempts)
	assert.Equal(t, int64(5), cfg.Health.FailedWarnCount)
}

func TestLoadBuildsDSNFromParts(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database:
  host: db.internal
  name: constellation
  user: app
  password: pw
`))
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:pw@db.internal:5432/constellation?sslmode=disable", cfg.Database.WriteDSN)
	assert.Equal(t, cfg.Database.WriteDSN, cfg.Database.ReadDSN)
}

func TestValidatePush(t *testing.T) {
	var cfg Config
	assert.Error(t, cfg.ValidatePush())

	cfg.Push.APIKey = "key"
	assert.Error(t, cfg.ValidatePush())

	cfg.Push.AppID = "app"
	assert.NoError(t, cfg.ValidatePush())
}
