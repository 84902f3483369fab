package storage_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/JaimeStill/rainn/pkg/storage"
)

const azurite = "DefaultEndpointsProtocol=http;AccountName=rainnstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/rainnstore;"

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantNil bool
		wantErr bool
	}{
		{name: "disabled", cfg: storage.Config{}, wantNil: true},
		{name: "connection string", cfg: storage.Config{Enabled: true, ContainerName: "run-bundles", ConnectionString: azurite}},
		{name: "malformed connection string", cfg: storage.Config{Enabled: true, ConnectionString: "not-a-connection-string"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, err := storage.New(&tt.cfg, slog.Default())
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (sys == nil) != tt.wantNil {
				t.Errorf("New() = %v, wantNil %v", sys, tt.wantNil)
			}
		})
	}
}

func TestUnavailableBeforeStart(t *testing.T) {
	sys, err := storage.New(&storage.Config{
		Enabled:          true,
		ContainerName:    "run-bundles",
		ConnectionString: azurite,
	}, slog.Default())
	if err != nil {
		t.Fatal(err)
	}

	if sys.Ready() {
		t.Fatal("Ready() = true before Start")
	}

	ctx := context.Background()
	key := "runs/0b7e/bundle.zip"

	if err := sys.Put(ctx, key, strings.NewReader("zip"), "application/zip"); !errors.Is(err, storage.ErrUnavailable) {
		t.Errorf("Put() error = %v, want ErrUnavailable", err)
	}
	if _, err := sys.Get(ctx, key); !errors.Is(err, storage.ErrUnavailable) {
		t.Errorf("Get() error = %v, want ErrUnavailable", err)
	}
	if err := sys.Remove(ctx, key); !errors.Is(err, storage.ErrUnavailable) {
		t.Errorf("Remove() error = %v, want ErrUnavailable", err)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr error
	}{
		{"runs/0b7e/bundle.zip", nil},
		{"bundle.zip", nil},
		{"", storage.ErrEmptyKey},
		{"runs/../secrets", storage.ErrInvalidKey},
		{"../bundle.zip", storage.ErrInvalidKey},
		{"runs//bundle.zip", storage.ErrInvalidKey},
		{"/runs/bundle.zip", storage.ErrInvalidKey},
		{"runs/./bundle.zip", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := storage.ValidateKey(tt.key); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}
