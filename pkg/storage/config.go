package storage

import (
	"errors"
	"os"
	"strconv"
)

// Config selects the blob container for cached run bundles. When Enabled,
// either ConnectionString or AccountURL must be set; AccountURL signs in with
// the default Azure credential chain.
type Config struct {
	Enabled          bool   `toml:"enabled"`
	ContainerName    string `toml:"container_name"`
	Prefix           string `toml:"prefix"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
}

// Env names the environment variables that override Config.
type Env struct {
	Enabled          string
	ContainerName    string
	Prefix           string
	ConnectionString string
	AccountURL       string
}

const defaultContainer = "run-bundles"

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.ContainerName == "" {
		c.ContainerName = defaultContainer
	}
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge applies non-empty overlay strings. An overlay can enable storage but
// never disable it; use the environment for that.
func (c *Config) Merge(overlay *Config) {
	c.Enabled = c.Enabled || overlay.Enabled
	for dst, src := range c.strings(overlay) {
		if *src != "" {
			*dst = *src
		}
	}
}

// strings pairs each string field with its counterpart in other.
func (c *Config) strings(other *Config) map[*string]*string {
	return map[*string]*string{
		&c.ContainerName:    &other.ContainerName,
		&c.Prefix:           &other.Prefix,
		&c.ConnectionString: &other.ConnectionString,
		&c.AccountURL:       &other.AccountURL,
	}
}

func (c *Config) loadEnv(env *Env) {
	if v, ok := lookup(env.Enabled); ok {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Enabled = enabled
		}
	}

	overrides := map[*string]string{
		&c.ContainerName:    env.ContainerName,
		&c.Prefix:           env.Prefix,
		&c.ConnectionString: env.ConnectionString,
		&c.AccountURL:       env.AccountURL,
	}
	for dst, name := range overrides {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
}

func lookup(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	v := os.Getenv(name)
	return v, v != ""
}

func (c *Config) validate() error {
	switch {
	case !c.Enabled:
		return nil
	case c.ContainerName == "":
		return errors.New("container_name required")
	case c.ConnectionString == "" && c.AccountURL == "":
		return errors.New("connection_string or account_url required")
	}
	return nil
}
