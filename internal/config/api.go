package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/rainn/pkg/formatting"
	"github.com/JaimeStill/rainn/pkg/middleware"
	"github.com/JaimeStill/rainn/pkg/pagination"
)

const (
	EnvAPIBasePath      = "RAINN_API_BASE_PATH"
	EnvAPIMaxUploadSize = "RAINN_API_MAX_UPLOAD_SIZE"

	defaultMaxUpload = "50MB"
)

var (
	corsEnv = &middleware.CORSEnv{
		Enabled:          "RAINN_CORS_ENABLED",
		Origins:          "RAINN_CORS_ORIGINS",
		AllowedMethods:   "RAINN_CORS_ALLOWED_METHODS",
		AllowedHeaders:   "RAINN_CORS_ALLOWED_HEADERS",
		ExposedHeaders:   "RAINN_CORS_EXPOSED_HEADERS",
		AllowCredentials: "RAINN_CORS_ALLOW_CREDENTIALS",
		MaxAge:           "RAINN_CORS_MAX_AGE",
	}
	paginationEnv = &pagination.ConfigEnv{
		DefaultPageSize: "RAINN_PAGINATION_DEFAULT_PAGE_SIZE",
		MaxPageSize:     "RAINN_PAGINATION_MAX_PAGE_SIZE",
	}
)

// APIConfig configures the /api module: its mount path, the multipart limit
// for run uploads, CORS, and list paging.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
}

// MaxUploadSizeBytes returns MaxUploadSize in bytes, or 50MB when it does not parse.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	for _, s := range []string{c.MaxUploadSize, defaultMaxUpload} {
		if n, err := formatting.ParseBytes(s); err == nil {
			return n
		}
	}
	return 0
}

// Finalize resolves the API settings, then its CORS and pagination blocks.
func (c *APIConfig) Finalize() error {
	settings := []struct {
		dst      *string
		env      string
		fallback string
	}{
		{&c.BasePath, EnvAPIBasePath, "/api"},
		{&c.MaxUploadSize, EnvAPIMaxUploadSize, defaultMaxUpload},
	}
	for _, s := range settings {
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
		} else if *s.dst == "" {
			*s.dst = s.fallback
		}
	}

	if _, err := formatting.ParseBytes(c.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge applies non-empty overlay values, including nested blocks.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}
