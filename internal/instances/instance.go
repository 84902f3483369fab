// Package instances manages run records: creation, on-disk run folders,
// terminal status, sliding expiry, and retention sweeps.
package instances

import (
	"time"

	"github.com/google/uuid"
)

// Status is the state of a run or an executed stage.
type Status string

// Run and stage statuses. Rows are created RUNNING and move once to
// COMPLETED or FAILED. PENDING is never persisted.
const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether s is COMPLETED or FAILED.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Instance is one execution of a process against uploaded input.
type Instance struct {
	ID             uuid.UUID  `json:"id"`
	ProcessID      uuid.UUID  `json:"process_id"`
	ProcessName    string     `json:"process_name"`
	AgentID        uuid.UUID  `json:"agent_id"`
	Status         Status     `json:"status"`
	RunFolder      string     `json:"run_folder"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	DeletedAt      *time.Time `json:"deleted_at"`
	DownloadedAt   *time.Time `json:"downloaded_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsActive reports whether the run's artifacts may still be served.
// A soft-deleted run is inactive; so is one whose expiry has passed.
// A run without an expiry is active indefinitely.
func (i *Instance) IsActive(now time.Time) bool {
	if i.DeletedAt != nil {
		return false
	}
	if i.ExpiresAt != nil && now.After(*i.ExpiresAt) {
		return false
	}
	return true
}

// Refresh slides the expiry window: the run expires ttl after now,
// regardless of the previous expiry.
func (i *Instance) Refresh(now time.Time, ttl time.Duration) {
	expires := now.Add(ttl)
	i.LastAccessedAt = now
	i.ExpiresAt = &expires
}

// StageInstance is the execution record of one stage within a run.
// Order 0 is input normalization.
type StageInstance struct {
	ID           uuid.UUID  `json:"id"`
	InstanceID   uuid.UUID  `json:"instance_id"`
	Order        int        `json:"order"`
	Name         string     `json:"name"`
	Status       Status     `json:"status"`
	ArtifactPath *string    `json:"artifact_path"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at"`
	Error        *string    `json:"error"`
}

// SweepResult counts the runs affected by one retention sweep.
type SweepResult struct {
	SoftDeleted int   `json:"soft_deleted"`
	Purged      int64 `json:"purged"`
	Reaped      int64 `json:"reaped"`
}
