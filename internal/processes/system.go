package processes

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/pkg/pagination"
)

// System defines the public contract for process domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Process], error)

	Find(ctx context.Context, id uuid.UUID) (*Process, error)
	Create(ctx context.Context, cmd CreateCommand) (*Process, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Process, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Names returns every process name.
	Names(ctx context.Context) ([]string, error)
}
