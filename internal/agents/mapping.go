package agents

import (
	"net/url"

	"github.com/JaimeStill/rainn/pkg/query"
	"github.com/JaimeStill/rainn/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "agents", "a").
	Project("id", "ID").
	Project("name", "Name").
	Project("description", "Description").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "Name",
}

var stageProjection = query.
	NewProjectionMap("public", "stages", "s").
	Project("id", "ID").
	Project("agent_id", "AgentID").
	Project("type", "Type").
	Project("description", "Description").
	Project("role", "Role").
	Project("position", "Position").
	Project("created_at", "CreatedAt")

var stageSort = []query.SortField{
	{Field: "Position"},
	{Field: "CreatedAt"},
	{Field: "ID"},
}

const stageReturning = "RETURNING id, agent_id, type, description, role, position, created_at"

// Filters contains optional filtering criteria for agent queries.
type Filters struct {
	Name *string `json:"name,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.WhereContains("Name", f.Name)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if n := values.Get("name"); n != "" {
		f.Name = &n
	}
	return f
}

func scanAgent(s repository.Scanner) (Agent, error) {
	var a Agent
	err := s.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func scanStage(s repository.Scanner) (Stage, error) {
	var st Stage
	err := s.Scan(
		&st.ID,
		&st.AgentID,
		&st.Type,
		&st.Description,
		&st.Role,
		&st.Position,
		&st.CreatedAt,
	)
	return st, err
}

func scanName(s repository.Scanner) (string, error) {
	var name string
	err := s.Scan(&name)
	return name, err
}
