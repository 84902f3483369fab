package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvRunsRoot          = "RAINN_RUNS_ROOT"
	EnvRunsTTL           = "RAINN_RUNS_TTL"
	EnvRunsRetention     = "RAINN_RUNS_RETENTION"
	EnvRunsSweepInterval = "RAINN_RUNS_SWEEP_INTERVAL"
	EnvRunsStaleAfter    = "RAINN_RUNS_STALE_AFTER"
	EnvRunsMaxFiles      = "RAINN_RUNS_MAX_FILES"
)

// RunsConfig holds run folder placement and artifact retention settings.
type RunsConfig struct {
	Root          string `toml:"root"`
	TTL           string `toml:"ttl"`
	Retention     string `toml:"retention"`
	SweepInterval string `toml:"sweep_interval"`
	StaleAfter    string `toml:"stale_after"`
	MaxFiles      int    `toml:"max_files"`
}

// TTLDuration returns the sliding expiry window.
func (c *RunsConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// RetentionDuration returns how long soft-deleted receipts are kept.
func (c *RunsConfig) RetentionDuration() time.Duration {
	d, _ := time.ParseDuration(c.Retention)
	return d
}

// SweepIntervalDuration returns the minimum time between sweeps.
func (c *RunsConfig) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// StaleAfterDuration returns the age at which RUNNING runs are reaped.
// Zero disables reaping.
func (c *RunsConfig) StaleAfterDuration() time.Duration {
	d, _ := time.ParseDuration(c.StaleAfter)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *RunsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *RunsConfig) Merge(overlay *RunsConfig) {
	if overlay.Root != "" {
		c.Root = overlay.Root
	}
	if overlay.TTL != "" {
		c.TTL = overlay.TTL
	}
	if overlay.Retention != "" {
		c.Retention = overlay.Retention
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
	if overlay.StaleAfter != "" {
		c.StaleAfter = overlay.StaleAfter
	}
	if overlay.MaxFiles != 0 {
		c.MaxFiles = overlay.MaxFiles
	}
}

func (c *RunsConfig) loadDefaults() {
	if c.Root == "" {
		c.Root = "agent_runs"
	}
	if c.TTL == "" {
		c.TTL = "15m"
	}
	if c.Retention == "" {
		c.Retention = "6h"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "1m"
	}
	if c.StaleAfter == "" {
		c.StaleAfter = "2h"
	}
	if c.MaxFiles == 0 {
		c.MaxFiles = 10
	}
}

func (c *RunsConfig) loadEnv() {
	if v := os.Getenv(EnvRunsRoot); v != "" {
		c.Root = v
	}
	if v := os.Getenv(EnvRunsTTL); v != "" {
		c.TTL = v
	}
	if v := os.Getenv(EnvRunsRetention); v != "" {
		c.Retention = v
	}
	if v := os.Getenv(EnvRunsSweepInterval); v != "" {
		c.SweepInterval = v
	}
	if v := os.Getenv(EnvRunsStaleAfter); v != "" {
		c.StaleAfter = v
	}
	if v := os.Getenv(EnvRunsMaxFiles); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxFiles = n
		}
	}
}

func (c *RunsConfig) validate() error {
	positive := []struct{ name, value string }{
		{"ttl", c.TTL},
		{"retention", c.Retention},
		{"sweep_interval", c.SweepInterval},
	}
	for _, p := range positive {
		d, err := time.ParseDuration(p.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", p.name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", p.name)
		}
	}

	d, err := time.ParseDuration(c.StaleAfter)
	if err != nil {
		return fmt.Errorf("invalid stale_after: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("stale_after must not be negative")
	}

	if c.MaxFiles < 1 {
		return fmt.Errorf("max_files must be positive")
	}
	return nil
}
