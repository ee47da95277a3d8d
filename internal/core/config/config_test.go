package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.App.HTTP.Port)
	assert.Equal(t, 8082, cfg.App.Audit.Port)
	assert.Equal(t, "sum.events", cfg.RabbitMQ.Exchange)
	assert.Equal(t, int64(2), cfg.Automation.DefaultRoleID)
	assert.Equal(t, "USER", cfg.Automation.DefaultRoleName)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, int64(1024), cfg.App.HTTP.MaxBodyKB)
	assert.Equal(t, 10, cfg.App.HTTP.RequestTimeoutSec)
	assert.False(t, cfg.RabbitMQ.Disabled)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte("db:\n  driver: mysql\n  dsn: mysql://u:p@localhost:3306/sum\nautomation:\n  defaultRoleID: 7\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	t.Setenv("APP_RABBITMQ_EXCHANGE", "other.events")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, int64(7), cfg.Automation.DefaultRoleID)
	assert.Equal(t, "other.events", cfg.RabbitMQ.Exchange)
}

func TestLoad_BrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
