package database_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/JaimeStill/rainn/pkg/database"
)

// newSystem opens a pool against an address nothing listens on. sql.Open is
// lazy, so no test here needs a server.
func newSystem(t *testing.T, open, idle int) database.System {
	t.Helper()
	cfg := database.Config{
		Host:            "127.0.0.1",
		Port:            1,
		Name:            "rainn",
		User:            "rainn",
		SSLMode:         "disable",
		MaxOpenConns:    open,
		MaxIdleConns:    idle,
		ConnMaxLifetime: "1m",
		ConnTimeout:     "1s",
	}

	sys, err := database.New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { sys.Connection().Close() })
	return sys
}

func TestNewSizesPool(t *testing.T) {
	sys := newSystem(t, 42, 7)

	if got := sys.Connection().Stats().MaxOpenConnections; got != 42 {
		t.Errorf("MaxOpenConnections = %d, want 42", got)
	}
}

func TestNotReadyBeforeStart(t *testing.T) {
	sys := newSystem(t, 5, 1)

	if sys.Ready() {
		t.Error("Ready() = true before Start")
	}
	if err := sys.Ping(context.Background()); !errors.Is(err, database.ErrNotReady) {
		t.Errorf("Ping() error = %v, want ErrNotReady", err)
	}
}
