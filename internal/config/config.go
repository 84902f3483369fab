// Package config loads the rainn service configuration from TOML files and
// RAINN_* environment variables.
//
// Precedence, lowest first: built-in defaults, config.toml (or RAINN_CONFIG),
// config.<RAINN_ENV>.toml, then environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/rainn/pkg/database"
	"github.com/JaimeStill/rainn/pkg/llm"
	"github.com/JaimeStill/rainn/pkg/middleware"
	"github.com/JaimeStill/rainn/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvRainnEnv             = "RAINN_ENV"
	EnvRainnConfig          = "RAINN_CONFIG"
	EnvRainnShutdownTimeout = "RAINN_SHUTDOWN_TIMEOUT"
	EnvRainnVersion         = "RAINN_VERSION"
)

var (
	databaseEnv = &database.Env{
		Host:            "RAINN_DB_HOST",
		Port:            "RAINN_DB_PORT",
		Name:            "RAINN_DB_NAME",
		User:            "RAINN_DB_USER",
		Password:        "RAINN_DB_PASSWORD",
		SSLMode:         "RAINN_DB_SSL_MODE",
		MaxOpenConns:    "RAINN_DB_MAX_OPEN_CONNS",
		MaxIdleConns:    "RAINN_DB_MAX_IDLE_CONNS",
		ConnMaxLifetime: "RAINN_DB_CONN_MAX_LIFETIME",
		ConnTimeout:     "RAINN_DB_CONN_TIMEOUT",
		ApplicationName: "RAINN_DB_APPLICATION_NAME",
	}
	storageEnv = &storage.Env{
		Enabled:          "RAINN_STORAGE_ENABLED",
		ContainerName:    "RAINN_STORAGE_CONTAINER_NAME",
		Prefix:           "RAINN_STORAGE_PREFIX",
		ConnectionString: "RAINN_STORAGE_CONNECTION_STRING",
		AccountURL:       "RAINN_STORAGE_ACCOUNT_URL",
	}
	modelEnv = &llm.Env{
		Provider:    "RAINN_MODEL_PROVIDER",
		BaseURL:     "RAINN_MODEL_BASE_URL",
		Timeout:     "RAINN_MODEL_TIMEOUT",
		MaxAttempts: "RAINN_MODEL_MAX_ATTEMPTS",
	}
	authEnv = &middleware.AuthEnv{
		Enabled:  "RAINN_AUTH_ENABLED",
		Issuer:   "RAINN_AUTH_ISSUER",
		ClientID: "RAINN_AUTH_CLIENT_ID",
	}
)

// Config is the root configuration for the rainn service.
type Config struct {
	Server          ServerConfig          `toml:"server"`
	Database        database.Config       `toml:"database"`
	Storage         storage.Config        `toml:"storage"`
	API             APIConfig             `toml:"api"`
	Model           llm.Config            `toml:"model"`
	Runs            RunsConfig            `toml:"runs"`
	Auth            middleware.AuthConfig `toml:"auth"`
	Logging         LoggingConfig         `toml:"logging"`
	ShutdownTimeout string                `toml:"shutdown_timeout"`
	Version         string                `toml:"version"`
}

// Env returns the RAINN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvRainnEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Load merges every config file that exists, in precedence order, and
// finalizes the result. With no files at all, defaults and environment
// variables supply everything.
func Load() (*Config, error) {
	cfg := &Config{}

	for _, path := range files() {
		layer, err := decodeFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cfg.Merge(layer)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// files lists candidate config files, lowest precedence first.
func files() []string {
	base := BaseConfigFile
	if v := os.Getenv(EnvRainnConfig); v != "" {
		base = v
	}

	paths := []string{base}
	if env := os.Getenv(EnvRainnEnv); env != "" {
		paths = append(paths, fmt.Sprintf(OverlayConfigPattern, env))
	}
	return paths
}

// decodeFile parses path strictly, so a misspelled key fails startup instead
// of silently falling back to a default.
func decodeFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%s: unknown keys:\n%s", path, strict.String())
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Model.Merge(&overlay.Model)
	c.Runs.Merge(&overlay.Runs)
	c.Auth.Merge(&overlay.Auth)
	c.Logging.Merge(&overlay.Logging)
}

func (c *Config) finalize() error {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if v := os.Getenv(EnvRainnShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvRainnVersion); v != "" {
		c.Version = v
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"api", c.API.Finalize},
		{"model", func() error { return c.Model.Finalize(modelEnv) }},
		{"runs", c.Runs.Finalize},
		{"auth", func() error { return c.Auth.Finalize(authEnv) }},
		{"logging", func() error { return c.Logging.Finalize(c.Env()) }},
	}
	for _, s := range sections {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
