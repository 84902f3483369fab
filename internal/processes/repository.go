package processes

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/pkg/pagination"
	"github.com/JaimeStill/rainn/pkg/query"
	"github.com/JaimeStill/rainn/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a process repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "processes"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Process], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Model")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count processes: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	procs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanProcess)
	if err != nil {
		return nil, fmt.Errorf("query processes: %w", err)
	}

	result := pagination.NewPageResult(procs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Process, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanProcess)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Process, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO processes(agent_id, name, priming, model)
		VALUES ($1, $2, $3, $4)
		` + returning

	args := []any{cmd.AgentID, strings.TrimSpace(cmd.Name), cmd.Priming, strings.TrimSpace(cmd.Model)}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Process, error) {
		return repository.QueryOne(ctx, tx, q, args, scanProcess)
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrAgentNotFound
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("process created", "id", p.ID, "name", p.Name, "agent_id", p.AgentID, "model", p.Model)
	return &p, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Process, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	q := `
		UPDATE processes
		SET name = $1, priming = $2, model = $3, updated_at = now()
		WHERE id = $4
		` + returning

	args := []any{strings.TrimSpace(cmd.Name), cmd.Priming, strings.TrimSpace(cmd.Model), id}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Process, error) {
		return repository.QueryOne(ctx, tx, q, args, scanProcess)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("process updated", "id", p.ID, "name", p.Name)
	return &p, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM processes WHERE id = $1",
			id,
		)
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("process deleted", "id", id)
	return nil
}

func (r *repo) Names(ctx context.Context) ([]string, error) {
	names, err := repository.QueryMany(
		ctx, r.db,
		"SELECT name FROM processes ORDER BY name",
		nil, scanName,
	)
	if err != nil {
		return nil, fmt.Errorf("query process names: %w", err)
	}
	return names, nil
}
