package agents

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

// New creates an agent repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "agents"),
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
) (*pagination.PageResult[Agent], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Description")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count agents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	agents, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanAgent)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}

	result := pagination.NewPageResult(agents, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Agent, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	a, err := repository.QueryOne(ctx, r.db, q, args, scanAgent)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	stages, err := r.Stages(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Stages = stages

	return &a, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Agent, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO agents(name, description)
		VALUES ($1, $2)
		RETURNING id, name, description, created_at, updated_at`

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Agent, error) {
		agent, err := repository.QueryOne(
			ctx, tx, q,
			[]any{strings.TrimSpace(cmd.Name), cmd.Description},
			scanAgent,
		)
		if err != nil {
			return Agent{}, err
		}

		agent.Stages = make([]Stage, 0, len(cmd.Stages))
		for i, sc := range cmd.Stages {
			position := i + 1
			if sc.Position != nil {
				position = *sc.Position
			}

			st, err := insertStage(ctx, tx, agent.ID, sc, position)
			if err != nil {
				return Agent{}, err
			}
			agent.Stages = append(agent.Stages, st)
		}

		SortStages(agent.Stages)
		return agent, nil
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("agent created", "id", a.ID, "name", a.Name, "stages", len(a.Stages))
	return &a, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Agent, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	q := `
		UPDATE agents
		SET name = $1, description = $2, updated_at = now()
		WHERE id = $3
		RETURNING id, name, description, created_at, updated_at`

	args := []any{strings.TrimSpace(cmd.Name), cmd.Description, id}

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Agent, error) {
		return repository.QueryOne(ctx, tx, q, args, scanAgent)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("agent updated", "id", a.ID, "name", a.Name)
	return &a, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM agents WHERE id = $1",
			id,
		)
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("agent deleted", "id", id)
	return nil
}

func (r *repo) Stages(ctx context.Context, agentID uuid.UUID) ([]Stage, error) {
	q, args := query.
		NewBuilder(stageProjection, stageSort...).
		WhereEquals("AgentID", agentID).
		Build()

	stages, err := repository.QueryMany(ctx, r.db, q, args, scanStage)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	return stages, nil
}

func (r *repo) AddStage(ctx context.Context, agentID uuid.UUID, cmd StageCommand) (*Stage, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	st, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Stage, error) {
		var exists bool
		if err := tx.QueryRowContext(
			ctx,
			"SELECT EXISTS(SELECT 1 FROM agents WHERE id = $1)",
			agentID,
		).Scan(&exists); err != nil {
			return Stage{}, err
		}
		if !exists {
			return Stage{}, ErrNotFound
		}

		position := 0
		if cmd.Position != nil {
			position = *cmd.Position
		} else if err := tx.QueryRowContext(
			ctx,
			"SELECT COALESCE(MAX(position), 0) + 1 FROM stages WHERE agent_id = $1",
			agentID,
		).Scan(&position); err != nil {
			return Stage{}, err
		}

		return insertStage(ctx, tx, agentID, cmd, position)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrStageNotFound, ErrDuplicate)
	}

	r.logger.Info("stage added", "agent_id", agentID, "id", st.ID, "type", st.Type, "position", st.Position)
	return &st, nil
}

func (r *repo) UpdateStage(ctx context.Context, stageID uuid.UUID, cmd StageCommand) (*Stage, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	q := `
		UPDATE stages
		SET type = $1, description = $2, role = $3, position = COALESCE($4, position)
		WHERE id = $5
		` + stageReturning

	args := []any{strings.TrimSpace(cmd.Type), cmd.Description, string(cmd.Role), cmd.Position, stageID}

	st, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Stage, error) {
		return repository.QueryOne(ctx, tx, q, args, scanStage)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrStageNotFound, ErrDuplicate)
	}

	r.logger.Info("stage updated", "id", st.ID, "type", st.Type, "position", st.Position)
	return &st, nil
}

func (r *repo) DeleteStage(ctx context.Context, stageID uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM stages WHERE id = $1",
			stageID,
		)
	})

	if err != nil {
		return repository.MapError(err, ErrStageNotFound, ErrDuplicate)
	}

	r.logger.Info("stage deleted", "id", stageID)
	return nil
}

func (r *repo) Names(ctx context.Context) ([]string, error) {
	names, err := repository.QueryMany(
		ctx, r.db,
		"SELECT name FROM agents ORDER BY name",
		nil, scanName,
	)
	if err != nil {
		return nil, fmt.Errorf("query agent names: %w", err)
	}
	return names, nil
}

func insertStage(ctx context.Context, tx *sql.Tx, agentID uuid.UUID, cmd StageCommand, position int) (Stage, error) {
	q := `
		INSERT INTO stages(agent_id, type, description, role, position)
		VALUES ($1, $2, $3, $4, $5)
		` + stageReturning

	args := []any{agentID, strings.TrimSpace(cmd.Type), cmd.Description, string(cmd.Role), position}
	return repository.QueryOne(ctx, tx, q, args, scanStage)
}
