package processes

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/pkg/query"
	"github.com/JaimeStill/rainn/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "processes", "p").
	Project("id", "ID").
	Project("agent_id", "AgentID").
	Project("name", "Name").
	Project("priming", "Priming").
	Project("model", "Model").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "Name",
}

const returning = "RETURNING id, agent_id, name, priming, model, created_at, updated_at"

// Filters contains optional filtering criteria for process queries.
type Filters struct {
	AgentID *uuid.UUID `json:"agent_id,omitempty"`
	Model   *string    `json:"model,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("AgentID", f.AgentID).
		WhereEquals("Model", f.Model)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if a := values.Get("agent_id"); a != "" {
		if id, err := uuid.Parse(a); err == nil {
			f.AgentID = &id
		}
	}

	if m := values.Get("model"); m != "" {
		f.Model = &m
	}

	return f
}

func scanProcess(s repository.Scanner) (Process, error) {
	var p Process
	err := s.Scan(
		&p.ID,
		&p.AgentID,
		&p.Name,
		&p.Priming,
		&p.Model,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func scanName(s repository.Scanner) (string, error) {
	var name string
	err := s.Scan(&name)
	return name, err
}
