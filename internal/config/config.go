// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable, e.g. PLURA_HTTP_PORT.
const Prefix = "PLURA"

// Config holds the configuration for the proxy service.
type Config struct {
	SlackBotToken      string `envconfig:"SLACK_BOT_TOKEN"`
	SlackSigningSecret string `envconfig:"SLACK_SIGNING_SECRET"`
	SlackAPIURL        string `envconfig:"SLACK_API_URL" default:"https://slack.com/api/"`

	// DatabaseURL is a SQLite file path or a Postgres DSN.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`

	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	PlatformMaxRetries int     `envconfig:"PLATFORM_MAX_RETRIES" default:"4"`
	PlatformRPS        float64 `envconfig:"PLATFORM_RPS" default:"5"`
	PlatformBurst      int     `envconfig:"PLATFORM_BURST" default:"10"`

	OperationTimeout time.Duration `envconfig:"OPERATION_TIMEOUT" default:"30s"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"20s"`
}

// New loads an optional .env file, then parses PLURA_* variables.
func New() (*Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveDefaults fills the database location and driver and validates ranges.
func (c *Config) ResolveDefaults() error {
	if c.DatabaseURL == "" {
		home, _ := os.UserHomeDir()
		c.DatabaseURL = filepath.Join(home, ".plura-proxy", "proxy.db")
	}

	switch c.DBDriver {
	case "", "auto":
		if isPostgresURL(c.DatabaseURL) {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported %s_DB_DRIVER: %s", Prefix, c.DBDriver)
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid %s_HTTP_PORT: %d", Prefix, c.HTTPPort)
	}
	if c.PlatformMaxRetries < 0 {
		return fmt.Errorf("invalid %s_PLATFORM_MAX_RETRIES: %d", Prefix, c.PlatformMaxRetries)
	}
	return nil
}

// RequireSlack reports the missing Slack credentials needed to serve.
func (c *Config) RequireSlack() error {
	if c.SlackBotToken == "" {
		return fmt.Errorf("%s_SLACK_BOT_TOKEN should be set to the bot's token", Prefix)
	}
	// Without it /push and /action would accept unsigned requests.
	if c.SlackSigningSecret == "" {
		return fmt.Errorf("%s_SLACK_SIGNING_SECRET should be set to the app's signing secret", Prefix)
	}
	return nil
}

// NewForTesting returns a config that touches nothing outside the process.
func NewForTesting() *Config {
	return &Config{
		SlackAPIURL:        "http://127.0.0.1:0/api/",
		DatabaseURL:        filepath.Join(os.TempDir(), "plura-proxy-test.db"),
		DBDriver:           "sqlite",
		HTTPPort:           8080,
		LogLevel:           "debug",
		PlatformMaxRetries: 1,
		PlatformRPS:        1000,
		PlatformBurst:      100,
		OperationTimeout:   5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
	}
}

// GetHTTPAddr returns the HTTP listen address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func isPostgresURL(u string) bool {
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}
