package database

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds PostgreSQL connection and pool parameters.
type Config struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Name            string `toml:"name"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	SSLMode         string `toml:"ssl_mode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnTimeout     string `toml:"conn_timeout"`
	ApplicationName string `toml:"application_name"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    string
	MaxIdleConns    string
	ConnMaxLifetime string
	ConnTimeout     string
	ApplicationName string
}

// ConnMaxLifetimeDuration returns ConnMaxLifetime as a time.Duration.
func (c *Config) ConnMaxLifetimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnMaxLifetime)
	return d
}

// ConnTimeoutDuration returns ConnTimeout as a time.Duration.
func (c *Config) ConnTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnTimeout)
	return d
}

// Dsn returns a keyword/value connection string for the pgx driver. Values
// with spaces or quotes are single-quoted; an empty password is omitted.
func (c *Config) Dsn() string {
	pairs := [][2]string{
		{"host", c.Host},
		{"port", strconv.Itoa(c.Port)},
		{"dbname", c.Name},
		{"user", c.User},
		{"password", c.Password},
		{"sslmode", c.SSLMode},
		{"application_name", c.ApplicationName},
	}

	parts := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		if kv[1] == "" {
			continue
		}
		parts = append(parts, kv[0]+"="+dsnValue(kv[1]))
	}
	return strings.Join(parts, " ")
}

func dsnValue(v string) string {
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// URL returns the connection as a postgres:// URL, the form golang-migrate expects.
func (c *Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

type stringField struct {
	dst, src *string
	env      string
	fallback string
}

type intField struct {
	dst, src *int
	env      string
	fallback int
}

// fields pairs each Config field with the overlay's field, its env variable,
// and its default. overlay and env may be nil.
func (c *Config) fields(overlay *Config, env *Env) ([]stringField, []intField) {
	if overlay == nil {
		overlay = c
	}
	if env == nil {
		env = &Env{}
	}

	strs := []stringField{
		{&c.Host, &overlay.Host, env.Host, "localhost"},
		{&c.Name, &overlay.Name, env.Name, ""},
		{&c.User, &overlay.User, env.User, ""},
		{&c.Password, &overlay.Password, env.Password, ""},
		{&c.SSLMode, &overlay.SSLMode, env.SSLMode, "disable"},
		{&c.ConnMaxLifetime, &overlay.ConnMaxLifetime, env.ConnMaxLifetime, "15m"},
		{&c.ConnTimeout, &overlay.ConnTimeout, env.ConnTimeout, "5s"},
		{&c.ApplicationName, &overlay.ApplicationName, env.ApplicationName, "rainn"},
	}
	ints := []intField{
		{&c.Port, &overlay.Port, env.Port, 5432},
		{&c.MaxOpenConns, &overlay.MaxOpenConns, env.MaxOpenConns, 25},
		{&c.MaxIdleConns, &overlay.MaxIdleConns, env.MaxIdleConns, 5},
	}
	return strs, ints
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	strs, ints := c.fields(overlay, nil)
	for _, f := range strs {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
	for _, f := range ints {
		if *f.src != 0 {
			*f.dst = *f.src
		}
	}
}

func (c *Config) loadDefaults() {
	strs, ints := c.fields(nil, nil)
	for _, f := range strs {
		if *f.dst == "" {
			*f.dst = f.fallback
		}
	}
	for _, f := range ints {
		if *f.dst == 0 {
			*f.dst = f.fallback
		}
	}
}

func (c *Config) loadEnv(env *Env) {
	strs, ints := c.fields(nil, env)
	for _, f := range strs {
		if v := getenv(f.env); v != "" {
			*f.dst = v
		}
	}
	for _, f := range ints {
		if n, err := strconv.Atoi(getenv(f.env)); err == nil {
			*f.dst = n
		}
	}
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func (c *Config) validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("name required")
	case c.User == "":
		return fmt.Errorf("user required")
	case c.MaxIdleConns > c.MaxOpenConns:
		return fmt.Errorf("max_idle_conns cannot exceed max_open_conns")
	}
	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid conn_max_lifetime: %w", err)
	}
	if _, err := time.ParseDuration(c.ConnTimeout); err != nil {
		return fmt.Errorf("invalid conn_timeout: %w", err)
	}
	return nil
}
