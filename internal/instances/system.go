package instances

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/pkg/pagination"
)

// StageRecorder creates and transitions stage records during execution.
// Terminal transitions only apply to RUNNING stages.
type StageRecorder interface {
	CreateStage(ctx context.Context, instanceID uuid.UUID, order int, name string) (*StageInstance, error)
	CompleteStage(ctx context.Context, stageID uuid.UUID, artifactPath string) error
	FailStage(ctx context.Context, stageID uuid.UUID, message string) error
}

// System defines the public contract for run lifecycle operations.
type System interface {
	StageRecorder

	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Instance], error)

	Find(ctx context.Context, id uuid.UUID) (*Instance, error)
	Stages(ctx context.Context, id uuid.UUID) ([]StageInstance, error)

	// Create inserts a RUNNING run whose expiry is one TTL from now.
	Create(ctx context.Context, processID, agentID uuid.UUID) (*Instance, error)
	// AllocateFolder creates the run folder and its artifacts directory and
	// records the folder on the run.
	AllocateFolder(ctx context.Context, id uuid.UUID) (string, error)
	// Touch slides the expiry window of an active run. Returns ErrGone for
	// expired or soft-deleted runs.
	Touch(ctx context.Context, id uuid.UUID) (*Instance, error)
	// MarkDownloaded touches the run and stamps downloaded_at.
	MarkDownloaded(ctx context.Context, id uuid.UUID) (*Instance, error)
	// Finalize moves a RUNNING run to COMPLETED or FAILED exactly once.
	Finalize(ctx context.Context, id uuid.UUID, status Status) error
	// SoftDelete removes the run folder and artifact references, keeping the
	// rows as a receipt. Returns ErrRunning for in-flight runs and nil for
	// runs that are already soft-deleted.
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// Expire soft-deletes the run only if it is still expired at now.
	// Returns ErrNotExpired when the run was touched since it was listed.
	Expire(ctx context.Context, id uuid.UUID, now time.Time) error

	// Bundle returns a zip archive of the run folder. The caller must close it.
	Bundle(ctx context.Context, inst *Instance) (io.ReadCloser, error)

	// Expired returns runs past their expiry that are neither RUNNING nor soft-deleted.
	Expired(ctx context.Context, now time.Time) ([]Instance, error)
	// Purge hard-deletes runs soft-deleted before cutoff.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
	// ReapStale fails RUNNING runs created before cutoff and their RUNNING stages.
	ReapStale(ctx context.Context, cutoff time.Time) (int64, error)

	Root() string
	TTL() time.Duration
}
