// Package agents implements the agent definition domain: named templates made
// of ordered, typed stages with natural-language instructions.
package agents

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InputStageType marks the informational first stage of an agent.
// Input stages are never executed; normalization plays their role.
const InputStageType = "input"

// Agent is a reusable, named sequence of stages.
type Agent struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Stages      []Stage   `json:"stages,omitempty"`
}

// Stage is one step of an agent. Position fixes execution order.
type Stage struct {
	ID          uuid.UUID `json:"id"`
	AgentID     uuid.UUID `json:"agent_id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Role        StageRole `json:"role"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsInput reports whether the stage is the informational input stage.
func (s Stage) IsInput() bool {
	return strings.EqualFold(strings.TrimSpace(s.Type), InputStageType)
}

// EffectiveRole returns the explicit role, or the role inferred from the
// stage's type and description when none is set.
func (s Stage) EffectiveRole() StageRole {
	if s.Role != "" {
		return s.Role
	}
	return InferRole(s.Type, s.Description)
}

// SortStages orders stages by position, then creation time, then id.
func SortStages(stages []Stage) {
	slices.SortStableFunc(stages, func(a, b Stage) int {
		return cmp.Or(
			cmp.Compare(a.Position, b.Position),
			a.CreatedAt.Compare(b.CreatedAt),
			strings.Compare(a.ID.String(), b.ID.String()),
		)
	})
}

// CreateCommand carries the data needed to create an agent with its stages.
// Stages receive positions in the order given.
type CreateCommand struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Stages      []StageCommand `json:"stages"`
}

// UpdateCommand carries the data needed to update an agent's metadata.
type UpdateCommand struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StageCommand carries stage data for create and update operations.
// A nil Position appends on create and keeps the current value on update.
type StageCommand struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Role        StageRole `json:"role"`
	Position    *int      `json:"position,omitempty"`
}

func (c CreateCommand) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	for _, s := range c.Stages {
		if err := s.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c UpdateCommand) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	return nil
}

func (c StageCommand) validate() error {
	if strings.TrimSpace(c.Type) == "" && strings.TrimSpace(c.Description) == "" {
		return ErrEmptyStage
	}
	if c.Position != nil && *c.Position < 0 {
		return ErrInvalidPosition
	}
	return nil
}
