package instances_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/internal/instances"
	"github.com/JaimeStill/rainn/pkg/pagination"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockSystem struct {
	touchFn          func(ctx context.Context, id uuid.UUID) (*instances.Instance, error)
	stagesFn         func(ctx context.Context, id uuid.UUID) ([]instances.StageInstance, error)
	markDownloadedFn func(ctx context.Context, id uuid.UUID) (*instances.Instance, error)
	softDeleteFn     func(ctx context.Context, id uuid.UUID) error
	expireFn         func(ctx context.Context, id uuid.UUID, now time.Time) error
	bundleFn         func(ctx context.Context, inst *instances.Instance) (io.ReadCloser, error)
	expiredFn        func(ctx context.Context, now time.Time) ([]instances.Instance, error)
	purgeFn          func(ctx context.Context, cutoff time.Time) (int64, error)
	reapStaleFn      func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockSystem) Handler() *instances.Handler {
	return instances.NewHandler(m, discard, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
}

func (m *mockSystem) CreateStage(context.Context, uuid.UUID, int, string) (*instances.StageInstance, error) {
	panic("unexpected CreateStage")
}

func (m *mockSystem) CompleteStage(context.Context, uuid.UUID, string) error {
	panic("unexpected CompleteStage")
}

func (m *mockSystem) FailStage(context.Context, uuid.UUID, string) error {
	panic("unexpected FailStage")
}

func (m *mockSystem) List(context.Context, pagination.PageRequest, instances.Filters) (*pagination.PageResult[instances.Instance], error) {
	result := pagination.NewPageResult[instances.Instance](nil, 0, 1, 20)
	return &result, nil
}

func (m *mockSystem) Find(context.Context, uuid.UUID) (*instances.Instance, error) {
	panic("unexpected Find")
}

func (m *mockSystem) Stages(ctx context.Context, id uuid.UUID) ([]instances.StageInstance, error) {
	return m.stagesFn(ctx, id)
}

func (m *mockSystem) Create(context.Context, uuid.UUID, uuid.UUID) (*instances.Instance, error) {
	panic("unexpected Create")
}

func (m *mockSystem) AllocateFolder(context.Context, uuid.UUID) (string, error) {
	panic("unexpected AllocateFolder")
}

func (m *mockSystem) Touch(ctx context.Context, id uuid.UUID) (*instances.Instance, error) {
	return m.touchFn(ctx, id)
}

func (m *mockSystem) MarkDownloaded(ctx context.Context, id uuid.UUID) (*instances.Instance, error) {
	return m.markDownloadedFn(ctx, id)
}

func (m *mockSystem) Finalize(context.Context, uuid.UUID, instances.Status) error {
	panic("unexpected Finalize")
}

func (m *mockSystem) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return m.softDeleteFn(ctx, id)
}

func (m *mockSystem) Expire(ctx context.Context, id uuid.UUID, now time.Time) error {
	return m.expireFn(ctx, id, now)
}

func (m *mockSystem) Bundle(ctx context.Context, inst *instances.Instance) (io.ReadCloser, error) {
	return m.bundleFn(ctx, inst)
}

func (m *mockSystem) Expired(ctx context.Context, now time.Time) ([]instances.Instance, error) {
	return m.expiredFn(ctx, now)
}

func (m *mockSystem) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.purgeFn(ctx, cutoff)
}

func (m *mockSystem) ReapStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.reapStaleFn(ctx, cutoff)
}

func (m *mockSystem) Root() string       { return "" }
func (m *mockSystem) TTL() time.Duration { return time.Hour }
