package instances

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/pkg/query"
	"github.com/JaimeStill/rainn/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "instances", "i").
	Project("id", "ID").
	Project("process_id", "ProcessID").
	Project("agent_id", "AgentID").
	Project("status", "Status").
	Project("run_folder", "RunFolder").
	Project("last_accessed_at", "LastAccessedAt").
	Project("expires_at", "ExpiresAt").
	Project("deleted_at", "DeletedAt").
	Project("downloaded_at", "DownloadedAt").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "processes", "p", "JOIN", "p.id = i.process_id").
	Project("name", "ProcessName")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

var stageProjection = query.
	NewProjectionMap("public", "stage_instances", "si").
	Project("id", "ID").
	Project("instance_id", "InstanceID").
	Project("stage_order", "Order").
	Project("name", "Name").
	Project("status", "Status").
	Project("artifact_path", "ArtifactPath").
	Project("started_at", "StartedAt").
	Project("ended_at", "EndedAt").
	Project("error", "Error")

var stageSort = query.SortField{
	Field: "Order",
}

const stageReturning = "RETURNING id, instance_id, stage_order, name, status, artifact_path, started_at, ended_at, error"

// Filters contains optional filtering criteria for run queries.
// Deleted selects soft-deleted receipts when true and live runs when false.
type Filters struct {
	ProcessID *uuid.UUID `json:"process_id,omitempty"`
	Status    *Status    `json:"status,omitempty"`
	Deleted   *bool      `json:"deleted,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("ProcessID", f.ProcessID).
		WhereEquals("Status", f.Status)

	if f.Deleted != nil {
		if *f.Deleted {
			b.WhereNotNull("DeletedAt")
		} else {
			b.WhereNull("DeletedAt")
		}
	}
	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if p := values.Get("process_id"); p != "" {
		if id, err := uuid.Parse(p); err == nil {
			f.ProcessID = &id
		}
	}

	if s := values.Get("status"); s != "" {
		status := Status(s)
		f.Status = &status
	}

	switch values.Get("deleted") {
	case "true":
		v := true
		f.Deleted = &v
	case "false":
		v := false
		f.Deleted = &v
	}

	return f
}

func scanInstance(s repository.Scanner) (Instance, error) {
	var i Instance
	err := s.Scan(
		&i.ID,
		&i.ProcessID,
		&i.AgentID,
		&i.Status,
		&i.RunFolder,
		&i.LastAccessedAt,
		&i.ExpiresAt,
		&i.DeletedAt,
		&i.DownloadedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.ProcessName,
	)
	return i, err
}

func scanStage(s repository.Scanner) (StageInstance, error) {
	var st StageInstance
	err := s.Scan(
		&st.ID,
		&st.InstanceID,
		&st.Order,
		&st.Name,
		&st.Status,
		&st.ArtifactPath,
		&st.StartedAt,
		&st.EndedAt,
		&st.Error,
	)
	return st, err
}
