package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("PLURA_DATABASE_URL", "/tmp/plura/test.db")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.PlatformMaxRetries)
	assert.Equal(t, 30*time.Second, cfg.OperationTimeout)
	assert.Equal(t, "https://slack.com/api/", cfg.SlackAPIURL)
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
}

func TestNew_EnvOverride(t *testing.T) {
	t.Setenv("PLURA_DATABASE_URL", "postgres://u:p@localhost:5432/plura")
	t.Setenv("PLURA_HTTP_PORT", "9000")
	t.Setenv("PLURA_OPERATION_TIMEOUT", "5s")
	t.Setenv("PLURA_SLACK_BOT_TOKEN", "xoxb-1")
	t.Setenv("PLURA_SLACK_SIGNING_SECRET", "shh")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.OperationTimeout)
	assert.NoError(t, cfg.RequireSlack())
}

func TestNew_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("PLURA_DB_DRIVER", "mysql")
	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLURA_DB_DRIVER")
}

func TestResolveDefaults_FillsDatabasePath(t *testing.T) {
	cfg := &Config{HTTPPort: 8080}
	require.NoError(t, cfg.ResolveDefaults())
	assert.Contains(t, cfg.DatabaseURL, "proxy.db")
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestResolveDefaults_InvalidPort(t *testing.T) {
	cfg := &Config{HTTPPort: 70000, DatabaseURL: "x.db"}
	assert.Error(t, cfg.ResolveDefaults())
}

func TestRequireSlack(t *testing.T) {
	cfg := NewForTesting()
	assert.Error(t, cfg.RequireSlack())

	cfg.SlackBotToken = "xoxb"
	err := cfg.RequireSlack()
	require.Error(t, err, "signing secret is required too")
	assert.Contains(t, err.Error(), "PLURA_SLACK_SIGNING_SECRET")

	cfg.SlackSigningSecret = "shh"
	assert.NoError(t, cfg.RequireSlack())
}
