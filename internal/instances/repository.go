package instances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/pkg/pagination"
	"github.com/JaimeStill/rainn/pkg/query"
	"github.com/JaimeStill/rainn/pkg/repository"
	"github.com/JaimeStill/rainn/pkg/storage"
)

// Config holds the run folder root and sliding expiry window.
type Config struct {
	Root string
	TTL  time.Duration
}

type repo struct {
	db         *sql.DB
	store      storage.System
	cfg        Config
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// New creates a run lifecycle repository implementing the System interface.
// store may be nil, in which case bundles are never cached.
func New(
	db *sql.DB,
	store storage.System,
	cfg Config,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		store:      store,
		cfg:        cfg,
		logger:     logger.With("system", "instances"),
		pagination: pagination,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Root() string {
	return r.cfg.Root
}

func (r *repo) TTL() time.Duration {
	return r.cfg.TTL
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Instance], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "ProcessName")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	runs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanInstance)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	result := pagination.NewPageResult(runs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Instance, error) {
	inst, err := findInstance(ctx, r.db, id)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &inst, nil
}

func (r *repo) Stages(ctx context.Context, id uuid.UUID) ([]StageInstance, error) {
	q, args := query.
		NewBuilder(stageProjection, stageSort).
		WhereEquals("InstanceID", id).
		Build()

	stages, err := repository.QueryMany(ctx, r.db, q, args, scanStage)
	if err != nil {
		return nil, fmt.Errorf("query run stages: %w", err)
	}
	return stages, nil
}

func (r *repo) Create(ctx context.Context, processID, agentID uuid.UUID) (*Instance, error) {
	var inst Instance
	inst.Refresh(r.now(), r.cfg.TTL)

	q := `
		INSERT INTO instances(process_id, agent_id, status, last_accessed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	args := []any{processID, agentID, string(StatusRunning), inst.LastAccessedAt, inst.ExpiresAt}

	created, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Instance, error) {
		var id uuid.UUID
		if err := tx.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
			return Instance{}, err
		}
		return findInstance(ctx, tx, id)
	})

	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	r.logger.Info("run created", "instance_id", created.ID, "process_id", processID, "agent_id", agentID)
	return &created, nil
}

func (r *repo) AllocateFolder(ctx context.Context, id uuid.UUID) (string, error) {
	folder := FolderPath(r.cfg.Root, id)

	if err := os.MkdirAll(filepath.Join(folder, ArtifactsDir), 0o755); err != nil {
		return "", fmt.Errorf("create run folder: %w", err)
	}

	err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE instances SET run_folder = $1, updated_at = $2 WHERE id = $3",
		folder, r.now(), id,
	)
	if err != nil {
		return "", repository.MapError(err, ErrNotFound, ErrNotFound)
	}

	return folder, nil
}

func (r *repo) Touch(ctx context.Context, id uuid.UUID) (*Instance, error) {
	return r.refresh(ctx, id, false)
}

func (r *repo) MarkDownloaded(ctx context.Context, id uuid.UUID) (*Instance, error) {
	return r.refresh(ctx, id, true)
}

func (r *repo) refresh(ctx context.Context, id uuid.UUID, downloaded bool) (*Instance, error) {
	inst, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Instance, error) {
		inst, err := findInstance(ctx, tx, id)
		if err != nil {
			return Instance{}, err
		}

		now := r.now()
		if !inst.IsActive(now) {
			return Instance{}, ErrGone
		}

		inst.Refresh(now, r.cfg.TTL)
		q := "UPDATE instances SET last_accessed_at = $1, expires_at = $2 WHERE id = $3"
		args := []any{inst.LastAccessedAt, inst.ExpiresAt, id}

		if downloaded {
			inst.DownloadedAt = &now
			q = "UPDATE instances SET last_accessed_at = $1, expires_at = $2, downloaded_at = $4 WHERE id = $3"
			args = append(args, now)
		}

		if err := repository.ExecExpectOne(ctx, tx, q, args...); err != nil {
			return Instance{}, err
		}
		return inst, nil
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &inst, nil
}

func (r *repo) Finalize(ctx context.Context, id uuid.UUID, status Status) error {
	if !status.Terminal() {
		return ErrInvalidStatus
	}

	var window Instance
	now := r.now()
	window.Refresh(now, r.cfg.TTL)

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		n, err := repository.ExecCount(
			ctx, tx,
			`UPDATE instances
			SET status = $1, updated_at = $2, last_accessed_at = $2, expires_at = $3
			WHERE id = $4 AND status = $5`,
			string(status), now, window.ExpiresAt, id, string(StatusRunning),
		)
		if err != nil {
			return struct{}{}, err
		}
		if n == 0 {
			if _, err := findInstance(ctx, tx, id); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, ErrAlreadyFinalized
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrNotFound)
	}

	r.logger.Info("run finalized", "instance_id", id, "status", status)
	return nil
}

func (r *repo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.softDelete(ctx, id, nil)
}

func (r *repo) Expire(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.softDelete(ctx, id, &now)
}

// errAlreadyDeleted rolls back a soft delete that lost a race to another.
var errAlreadyDeleted = errors.New("run already soft-deleted")

// softDelete stamps deleted_at and clears stage artifact references in one
// transaction, then removes the run folder and cached bundle. A non-nil
// expiredBy restricts the delete to runs whose expiry is before it.
func (r *repo) softDelete(ctx context.Context, id uuid.UUID, expiredBy *time.Time) error {
	now := r.now()

	inst, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Instance, error) {
		n, err := repository.ExecCount(
			ctx, tx,
			`UPDATE instances SET deleted_at = $1, updated_at = $1
			WHERE id = $2
				AND deleted_at IS NULL
				AND status <> $3
				AND ($4::timestamptz IS NULL OR (expires_at IS NOT NULL AND expires_at < $4))`,
			now, id, string(StatusRunning), expiredBy,
		)
		if err != nil {
			return Instance{}, err
		}

		inst, err := findInstance(ctx, tx, id)
		if err != nil {
			return Instance{}, err
		}

		if n == 0 {
			switch {
			case inst.DeletedAt != nil:
				return Instance{}, errAlreadyDeleted
			case inst.Status == StatusRunning:
				return Instance{}, ErrRunning
			}
			return Instance{}, ErrNotExpired
		}

		if _, err := tx.ExecContext(
			ctx,
			"UPDATE stage_instances SET artifact_path = NULL, error = NULL WHERE instance_id = $1",
			id,
		); err != nil {
			return Instance{}, fmt.Errorf("clear stage artifacts: %w", err)
		}
		return inst, nil
	})

	switch {
	case errors.Is(err, errAlreadyDeleted):
		return nil
	case err != nil:
		return repository.MapError(err, ErrNotFound, ErrNotFound)
	}

	if err := r.removeFolder(inst.RunFolder); err != nil {
		r.logger.Warn("run folder removal failed", "instance_id", id, "error", err)
	}

	if r.store != nil && r.store.Ready() {
		if err := r.store.Remove(ctx, bundleKey(id)); err != nil && !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("cached bundle delete failed", "instance_id", id, "error", err)
		}
	}

	r.logger.Info("run soft-deleted", "instance_id", id)
	return nil
}

func (r *repo) Expired(ctx context.Context, now time.Time) ([]Instance, error) {
	q := fmt.Sprintf(
		`SELECT %s FROM %s
		WHERE i.deleted_at IS NULL
			AND i.expires_at IS NOT NULL
			AND i.expires_at < $1
			AND i.status <> $2
		ORDER BY i.expires_at`,
		projection.Columns(),
		projection.From(),
	)

	runs, err := repository.QueryMany(ctx, r.db, q, []any{now, string(StatusRunning)}, scanInstance)
	if err != nil {
		return nil, fmt.Errorf("query expired runs: %w", err)
	}
	return runs, nil
}

func (r *repo) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := repository.ExecCount(
		ctx, r.db,
		"DELETE FROM instances WHERE deleted_at IS NOT NULL AND deleted_at < $1",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	if n > 0 {
		r.logger.Info("soft-deleted runs purged", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

func (r *repo) ReapStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := r.now()
	var window Instance
	window.Refresh(now, r.cfg.TTL)

	n, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int64, error) {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE stage_instances
			SET status = $1, ended_at = $2, error = $3
			WHERE status = $4 AND instance_id IN (
				SELECT id FROM instances WHERE status = $4 AND created_at < $5
			)`,
			string(StatusFailed), now, "run abandoned", string(StatusRunning), cutoff,
		); err != nil {
			return 0, fmt.Errorf("fail abandoned stages: %w", err)
		}

		return repository.ExecCount(
			ctx, tx,
			`UPDATE instances
			SET status = $1, updated_at = $2, last_accessed_at = $2, expires_at = $3
			WHERE status = $4 AND created_at < $5`,
			string(StatusFailed), now, window.ExpiresAt, string(StatusRunning), cutoff,
		)
	})
	if err != nil {
		return 0, fmt.Errorf("reap stale runs: %w", err)
	}
	if n > 0 {
		r.logger.Warn("stale runs reaped", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

func (r *repo) CreateStage(ctx context.Context, instanceID uuid.UUID, order int, name string) (*StageInstance, error) {
	q := `
		INSERT INTO stage_instances(instance_id, stage_order, name, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
		` + stageReturning

	args := []any{instanceID, order, name, string(StatusRunning), r.now()}

	st, err := repository.QueryOne(ctx, r.db, q, args, scanStage)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("create stage record: %w", err)
	}
	return &st, nil
}

func (r *repo) CompleteStage(ctx context.Context, stageID uuid.UUID, artifactPath string) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		`UPDATE stage_instances
		SET status = $1, artifact_path = $2, ended_at = $3
		WHERE id = $4 AND status = $5`,
		string(StatusCompleted), artifactPath, r.now(), stageID, string(StatusRunning),
	)
	return repository.MapError(err, ErrStageNotFound, ErrStageNotFound)
}

func (r *repo) FailStage(ctx context.Context, stageID uuid.UUID, message string) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		`UPDATE stage_instances
		SET status = $1, error = $2, ended_at = $3
		WHERE id = $4 AND status = $5`,
		string(StatusFailed), message, r.now(), stageID, string(StatusRunning),
	)
	return repository.MapError(err, ErrStageNotFound, ErrStageNotFound)
}

// removeFolder deletes a run folder, refusing paths outside the runs root.
func (r *repo) removeFolder(folder string) error {
	if folder == "" {
		return nil
	}

	rel, err := filepath.Rel(r.cfg.Root, folder)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("run folder %q is outside %q", folder, r.cfg.Root)
	}

	if err := os.RemoveAll(folder); err != nil {
		return fmt.Errorf("remove run folder: %w", err)
	}
	return nil
}

func findInstance(ctx context.Context, q repository.Querier, id uuid.UUID) (Instance, error) {
	stmt, args := query.NewBuilder(projection).BuildSingle("ID", id)
	return repository.QueryOne(ctx, q, stmt, args, scanInstance)
}
