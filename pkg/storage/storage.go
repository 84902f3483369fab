// Package storage is a keyed blob store backed by Azure Blob Storage.
// The runtime uses it as an optional cache for packaged run bundles, so
// every operation reports ErrUnavailable until the container is confirmed.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync/atomic"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/JaimeStill/rainn/pkg/lifecycle"
)

// System stores opaque blobs by slash-separated key.
type System interface {
	// Start ensures the container exists during startup.
	Start(lc *lifecycle.Coordinator) error
	// Ready reports whether the container was confirmed.
	Ready() bool

	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	// Get returns the blob body. The caller must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

type container struct {
	client *azblob.Client
	name   string
	prefix string
	ready  atomic.Bool
	logger *slog.Logger
}

// New creates a System for cfg, or returns nil when storage is disabled.
// No request is made until Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client, err := dial(cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &container{
		client: client,
		name:   cfg.ContainerName,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger.With("system", "storage", "container", cfg.ContainerName),
	}, nil
}

func dial(cfg *Config) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("default credential: %w", err)
	}
	return azblob.NewClient(cfg.AccountURL, cred, nil)
}

func (c *container) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		_, err := c.client.CreateContainer(lc.Context(), c.name, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			c.logger.Error("container unavailable, bundle cache disabled", "error", err)
			return
		}

		c.ready.Store(true)
		c.logger.Info("container ready")
	})
	return nil
}

func (c *container) Ready() bool {
	return c.ready.Load()
}

func (c *container) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	name, err := c.blobName(key)
	if err != nil {
		return err
	}

	_, err = c.client.UploadStream(ctx, c.name, name, body, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}

	c.logger.Debug("blob stored", "key", name)
	return nil
}

func (c *container) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	name, err := c.blobName(key)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.DownloadStream(ctx, c.name, name, nil)
	if err != nil {
		return nil, classify("get", name, err)
	}
	return resp.Body, nil
}

func (c *container) Remove(ctx context.Context, key string) error {
	name, err := c.blobName(key)
	if err != nil {
		return err
	}

	if _, err := c.client.DeleteBlob(ctx, c.name, name, nil); err != nil {
		return classify("remove", name, err)
	}
	return nil
}

// blobName validates key and applies the configured prefix.
func (c *container) blobName(key string) (string, error) {
	if !c.ready.Load() {
		return "", ErrUnavailable
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if c.prefix == "" {
		return key, nil
	}
	return path.Join(c.prefix, key), nil
}

func classify(op, name string, err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s %s: %w", op, name, err)
}

// ValidateKey rejects empty keys and keys with empty, "." or ".." segments.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	for segment := range strings.SplitSeq(key, "/") {
		switch segment {
		case "", ".", "..":
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
