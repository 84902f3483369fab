// Package processes implements runnable agent configurations: an agent
// definition paired with a model and priming text.
package processes

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Process is a configured, runnable agent.
type Process struct {
	ID        uuid.UUID `json:"id"`
	AgentID   uuid.UUID `json:"agent_id"`
	Name      string    `json:"name"`
	Priming   string    `json:"priming"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCommand carries the data needed to create a process.
type CreateCommand struct {
	AgentID uuid.UUID `json:"agent_id"`
	Name    string    `json:"name"`
	Priming string    `json:"priming"`
	Model   string    `json:"model"`
}

// UpdateCommand carries the data needed to update a process.
type UpdateCommand struct {
	Name    string `json:"name"`
	Priming string `json:"priming"`
	Model   string `json:"model"`
}

func (c CreateCommand) validate() error {
	if c.AgentID == uuid.Nil {
		return ErrAgentRequired
	}
	return validateFields(c.Name, c.Model)
}

func (c UpdateCommand) validate() error {
	return validateFields(c.Name, c.Model)
}

func validateFields(name, model string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(model) == "" {
		return ErrModelRequired
	}
	return nil
}
