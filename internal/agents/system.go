package agents

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/pkg/pagination"
)

// System defines the public contract for agent domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Agent], error)

	// Find returns the agent with its stages in execution order.
	Find(ctx context.Context, id uuid.UUID) (*Agent, error)
	Create(ctx context.Context, cmd CreateCommand) (*Agent, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Agent, error)
	// Delete removes the agent and its stages. Returns ErrInUse while a
	// process or run references it.
	Delete(ctx context.Context, id uuid.UUID) error

	// Stages returns an agent's stages ordered by position, created_at, id.
	Stages(ctx context.Context, agentID uuid.UUID) ([]Stage, error)
	AddStage(ctx context.Context, agentID uuid.UUID, cmd StageCommand) (*Stage, error)
	UpdateStage(ctx context.Context, stageID uuid.UUID, cmd StageCommand) (*Stage, error)
	DeleteStage(ctx context.Context, stageID uuid.UUID) error

	// Names returns every agent name.
	Names(ctx context.Context) ([]string, error)
}
