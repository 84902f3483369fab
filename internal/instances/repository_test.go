package instances_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/rainn/internal/instances"
	"github.com/JaimeStill/rainn/internal/schema"
	"github.com/JaimeStill/rainn/pkg/pagination"
)

// These tests run against a disposable PostgreSQL database named by
// RAINN_TEST_DSN (a postgres:// URL) and skip when it is unset.
const envTestDSN = "RAINN_TEST_DSN"

type pgFixture struct {
	db        *sql.DB
	sys       instances.System
	root      string
	processID uuid.UUID
	agentID   uuid.UUID
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()

	dsn := os.Getenv(envTestDSN)
	if dsn == "" {
		t.Skipf("%s not set", envTestDSN)
	}

	m, err := schema.Open(dsn)
	if err != nil {
		t.Fatalf("schema.Open() error = %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}
	m.Close()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	f := &pgFixture{db: db, root: t.TempDir()}
	ctx := context.Background()

	if err := db.QueryRowContext(ctx,
		"INSERT INTO agents(name) VALUES ($1) RETURNING id",
		"agent "+uuid.NewString(),
	).Scan(&f.agentID); err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	if err := db.QueryRowContext(ctx,
		"INSERT INTO processes(agent_id, name, model) VALUES ($1, $2, $3) RETURNING id",
		f.agentID, "process "+uuid.NewString(), "llama3",
	).Scan(&f.processID); err != nil {
		t.Fatalf("insert process: %v", err)
	}

	t.Cleanup(func() {
		db.Exec("DELETE FROM instances WHERE process_id = $1", f.processID)
		db.Exec("DELETE FROM processes WHERE id = $1", f.processID)
		db.Exec("DELETE FROM agents WHERE id = $1", f.agentID)
	})

	f.sys = instances.New(
		db, nil,
		instances.Config{Root: f.root, TTL: time.Hour},
		discard,
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
	return f
}

// run creates a run with an allocated folder and moves it to status.
func (f *pgFixture) run(t *testing.T, status instances.Status) *instances.Instance {
	t.Helper()
	ctx := context.Background()

	inst, err := f.sys.Create(ctx, f.processID, f.agentID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.sys.AllocateFolder(ctx, inst.ID); err != nil {
		t.Fatalf("AllocateFolder() error = %v", err)
	}
	if status != instances.StatusRunning {
		if err := f.sys.Finalize(ctx, inst.ID, status); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
	}
	return f.find(t, inst.ID)
}

func (f *pgFixture) find(t *testing.T, id uuid.UUID) *instances.Instance {
	t.Helper()
	inst, err := f.sys.Find(context.Background(), id)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	return inst
}

func (f *pgFixture) expire(t *testing.T, id uuid.UUID, at time.Time) {
	t.Helper()
	if _, err := f.db.Exec("UPDATE instances SET expires_at = $1 WHERE id = $2", at, id); err != nil {
		t.Fatal(err)
	}
}

func TestRepositoryFinalizeOnce(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	inst := f.run(t, instances.StatusRunning)

	if err := f.sys.Finalize(ctx, inst.ID, instances.StatusCompleted); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if err := f.sys.Finalize(ctx, inst.ID, instances.StatusFailed); !errors.Is(err, instances.ErrAlreadyFinalized) {
		t.Errorf("second Finalize() error = %v, want %v", err, instances.ErrAlreadyFinalized)
	}
	if got := f.find(t, inst.ID).Status; got != instances.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", got)
	}
	if err := f.sys.Finalize(ctx, uuid.New(), instances.StatusFailed); !errors.Is(err, instances.ErrNotFound) {
		t.Errorf("Finalize(unknown) error = %v, want %v", err, instances.ErrNotFound)
	}
}

func TestRepositorySoftDeleteKeepsReceipt(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	inst := f.run(t, instances.StatusRunning)

	first, err := f.sys.CreateStage(ctx, inst.ID, 1, "summary")
	if err != nil {
		t.Fatalf("CreateStage() error = %v", err)
	}
	artifact := filepath.Join(inst.RunFolder, instances.ArtifactsDir, "01_stage_summary_output.txt")
	if err := f.sys.CompleteStage(ctx, first.ID, artifact); err != nil {
		t.Fatalf("CompleteStage() error = %v", err)
	}
	second, err := f.sys.CreateStage(ctx, inst.ID, 2, "risks")
	if err != nil {
		t.Fatalf("CreateStage() error = %v", err)
	}
	if err := f.sys.FailStage(ctx, second.ID, "model backend unavailable"); err != nil {
		t.Fatalf("FailStage() error = %v", err)
	}

	if err := f.sys.SoftDelete(ctx, inst.ID); !errors.Is(err, instances.ErrRunning) {
		t.Fatalf("SoftDelete(running) error = %v, want %v", err, instances.ErrRunning)
	}
	if err := f.sys.Finalize(ctx, inst.ID, instances.StatusFailed); err != nil {
		t.Fatal(err)
	}

	if err := f.sys.SoftDelete(ctx, inst.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}
	if err := f.sys.SoftDelete(ctx, inst.ID); err != nil {
		t.Errorf("repeated SoftDelete() error = %v, want nil", err)
	}

	got := f.find(t, inst.ID)
	if got.DeletedAt == nil || got.Status != instances.StatusFailed {
		t.Errorf("receipt = deleted %v status %s, want deleted FAILED", got.DeletedAt, got.Status)
	}
	if _, err := os.Stat(inst.RunFolder); !os.IsNotExist(err) {
		t.Errorf("run folder still present: %v", err)
	}

	stages, err := f.sys.Stages(ctx, inst.ID)
	if err != nil {
		t.Fatalf("Stages() error = %v", err)
	}
	var statuses []instances.Status
	for _, s := range stages {
		statuses = append(statuses, s.Status)
		if s.ArtifactPath != nil || s.Error != nil {
			t.Errorf("stage %d = artifact %v error %v, want both cleared", s.Order, s.ArtifactPath, s.Error)
		}
	}
	want := []instances.Status{instances.StatusCompleted, instances.StatusFailed}
	if !slices.Equal(statuses, want) {
		t.Errorf("stage statuses = %v, want %v", statuses, want)
	}

	if _, err := f.sys.Touch(ctx, inst.ID); !errors.Is(err, instances.ErrGone) {
		t.Errorf("Touch(deleted) error = %v, want %v", err, instances.ErrGone)
	}
}

func TestRepositoryTouch(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, f *pgFixture, id uuid.UUID)
		wantErr error
	}{
		{name: "active", prepare: func(*testing.T, *pgFixture, uuid.UUID) {}},
		{
			name: "expired",
			prepare: func(t *testing.T, f *pgFixture, id uuid.UUID) {
				f.expire(t, id, time.Now().Add(-time.Minute))
			},
			wantErr: instances.ErrGone,
		},
		{
			name: "soft-deleted",
			prepare: func(t *testing.T, f *pgFixture, id uuid.UUID) {
				if err := f.sys.SoftDelete(context.Background(), id); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: instances.ErrGone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPGFixture(t)
			inst := f.run(t, instances.StatusCompleted)
			tt.prepare(t, f, inst.ID)
			before := f.find(t, inst.ID)

			_, err := f.sys.Touch(context.Background(), inst.ID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Touch() error = %v, want %v", err, tt.wantErr)
			}

			after := f.find(t, inst.ID)
			if tt.wantErr != nil {
				if !after.LastAccessedAt.Equal(before.LastAccessedAt) || !after.ExpiresAt.Equal(*before.ExpiresAt) {
					t.Errorf("row changed: accessed %v -> %v, expires %v -> %v",
						before.LastAccessedAt, after.LastAccessedAt, *before.ExpiresAt, *after.ExpiresAt)
				}
				return
			}
			if !after.ExpiresAt.After(*before.ExpiresAt) {
				t.Errorf("expires_at = %v, want later than %v", *after.ExpiresAt, *before.ExpiresAt)
			}
		})
	}
}

func TestRepositoryMarkDownloaded(t *testing.T) {
	f := newPGFixture(t)
	inst := f.run(t, instances.StatusCompleted)

	if _, err := f.sys.MarkDownloaded(context.Background(), inst.ID); err != nil {
		t.Fatalf("MarkDownloaded() error = %v", err)
	}
	if got := f.find(t, inst.ID); got.DownloadedAt == nil {
		t.Error("downloaded_at not stamped")
	}
}

func TestRepositoryExpiredExcludesRunning(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	running := f.run(t, instances.StatusRunning)
	done := f.run(t, instances.StatusCompleted)
	fresh := f.run(t, instances.StatusFailed)
	f.expire(t, running.ID, past)
	f.expire(t, done.ID, past)

	expired, err := f.sys.Expired(ctx, time.Now())
	if err != nil {
		t.Fatalf("Expired() error = %v", err)
	}

	ids := map[uuid.UUID]bool{}
	for _, inst := range expired {
		ids[inst.ID] = true
	}
	if !ids[done.ID] {
		t.Error("expired finished run missing")
	}
	if ids[running.ID] || ids[fresh.ID] {
		t.Errorf("Expired() included running %v or unexpired %v", ids[running.ID], ids[fresh.ID])
	}
}

func TestRepositoryExpireSkipsTouchedRun(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	inst := f.run(t, instances.StatusCompleted)
	f.expire(t, inst.ID, time.Now().Add(-time.Minute))

	listedAt := time.Now()
	f.expire(t, inst.ID, listedAt.Add(time.Hour))

	if err := f.sys.Expire(ctx, inst.ID, listedAt); !errors.Is(err, instances.ErrNotExpired) {
		t.Fatalf("Expire(touched) error = %v, want %v", err, instances.ErrNotExpired)
	}
	if got := f.find(t, inst.ID); got.DeletedAt != nil {
		t.Error("touched run was soft-deleted")
	}
	if _, err := os.Stat(inst.RunFolder); err != nil {
		t.Errorf("run folder removed: %v", err)
	}

	if err := f.sys.Expire(ctx, inst.ID, listedAt.Add(2*time.Hour)); err != nil {
		t.Fatalf("Expire() error = %v", err)
	}
	if got := f.find(t, inst.ID); got.DeletedAt == nil {
		t.Error("expired run not soft-deleted")
	}
}

func TestRepositoryPurge(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	inst := f.run(t, instances.StatusCompleted)
	if _, err := f.sys.CreateStage(ctx, inst.ID, 1, "summary"); err != nil {
		t.Fatal(err)
	}
	if err := f.sys.SoftDelete(ctx, inst.ID); err != nil {
		t.Fatal(err)
	}
	kept := f.run(t, instances.StatusCompleted)

	if _, err := f.sys.Purge(ctx, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	f.find(t, inst.ID)

	n, err := f.sys.Purge(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if n < 1 {
		t.Errorf("Purge() = %d, want at least 1", n)
	}
	if _, err := f.sys.Find(ctx, inst.ID); !errors.Is(err, instances.ErrNotFound) {
		t.Errorf("Find(purged) error = %v, want %v", err, instances.ErrNotFound)
	}
	if stages, err := f.sys.Stages(ctx, inst.ID); err != nil || len(stages) != 0 {
		t.Errorf("Stages(purged) = %d rows, %v", len(stages), err)
	}
	if got := f.find(t, kept.ID); got.DeletedAt != nil {
		t.Error("active run was purged or deleted")
	}
}
