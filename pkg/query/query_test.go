package query_test

import (
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/pkg/query"
)

const runColumns = "i.id, i.status, i.created_at, i.deleted_at, p.name"
const runFrom = "public.instances i JOIN public.processes p ON p.id = i.process_id"

func runProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "instances", "i").
		Project("id", "ID").
		Project("status", "Status").
		Project("created_at", "CreatedAt").
		Project("deleted_at", "DeletedAt").
		Join("public", "processes", "p", "JOIN", "p.id = i.process_id").
		Project("name", "ProcessName")
}

func ptr[T any](v T) *T { return &v }

func TestProjectionMap(t *testing.T) {
	p := runProjection()

	if got := p.Table(); got != "public.instances i" {
		t.Errorf("Table() = %q", got)
	}
	if got := p.Alias(); got != "i" {
		t.Errorf("Alias() = %q, want i", got)
	}
	if got := p.Columns(); got != runColumns {
		t.Errorf("Columns() = %q, want %q", got, runColumns)
	}
	if got := p.From(); got != runFrom {
		t.Errorf("From() = %q, want %q", got, runFrom)
	}
	if got := len(p.ColumnList()); got != 5 {
		t.Errorf("len(ColumnList()) = %d, want 5", got)
	}
}

func TestProjectionLookup(t *testing.T) {
	p := runProjection()

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"view name", "CreatedAt", "i.created_at", true},
		{"raw column", "created_at", "i.created_at", true},
		{"joined view name", "ProcessName", "p.name", true},
		{"joined raw column", "name", "p.name", true},
		{"unknown", "created_at; DROP TABLE agents", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Lookup(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if got := p.Column("Unmapped"); got != "Unmapped" {
		t.Errorf("Column(Unmapped) = %q, want passthrough", got)
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{"empty", "", nil},
		{"ascending", "name", []query.SortField{{Field: "name"}}},
		{"descending", "-created_at", []query.SortField{{Field: "created_at", Descending: true}}},
		{
			"mixed with spaces",
			" name , -created_at ",
			[]query.SortField{{Field: "name"}, {Field: "created_at", Descending: true}},
		},
		{"blank parts skipped", "name,,-", []query.SortField{{Field: "name"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseSortFields(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	id := uuid.New()
	var nilStatus *string

	byCreated := []query.SortField{{Field: "CreatedAt", Descending: true}}

	tests := []struct {
		name     string
		sort     []query.SortField
		build    func(b *query.Builder) (string, []any)
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "plain select",
			build:   func(b *query.Builder) (string, []any) { return b.Build() },
			wantSQL: "SELECT " + runColumns + " FROM " + runFrom,
		},
		{
			name: "equals",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereEquals("Status", "COMPLETED").Build()
			},
			wantSQL:  "SELECT " + runColumns + " FROM " + runFrom + " WHERE i.status = $1",
			wantArgs: []any{"COMPLETED"},
		},
		{
			name: "typed nil skipped",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereEquals("Status", nilStatus).Build()
			},
			wantSQL: "SELECT " + runColumns + " FROM " + runFrom,
		},
		{
			name: "contains",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereContains("ProcessName", ptr("summ")).Build()
			},
			wantSQL:  "SELECT " + runColumns + " FROM " + runFrom + " WHERE p.name ILIKE $1",
			wantArgs: []any{"%summ%"},
		},
		{
			name: "empty contains skipped",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereContains("ProcessName", ptr("")).Build()
			},
			wantSQL: "SELECT " + runColumns + " FROM " + runFrom,
		},
		{
			name: "search numbers placeholders after earlier conditions",
			build: func(b *query.Builder) (string, []any) {
				return b.
					WhereEquals("ID", id).
					WhereSearch(ptr("x"), "ProcessName", "Status").
					Build()
			},
			wantSQL: "SELECT " + runColumns + " FROM " + runFrom +
				" WHERE i.id = $1 AND (p.name ILIKE $2 OR i.status ILIKE $3)",
			wantArgs: []any{id, "%x%", "%x%"},
		},
		{
			name: "null checks",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereNull("DeletedAt").WhereNotNull("CreatedAt").Build()
			},
			wantSQL: "SELECT " + runColumns + " FROM " + runFrom +
				" WHERE i.deleted_at IS NULL AND i.created_at IS NOT NULL",
		},
		{
			name: "count",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereEquals("Status", "FAILED").BuildCount()
			},
			wantSQL:  "SELECT COUNT(*) FROM " + runFrom + " WHERE i.status = $1",
			wantArgs: []any{"FAILED"},
		},
		{
			name: "page with default sort",
			sort: byCreated,
			build: func(b *query.Builder) (string, []any) {
				return b.BuildPage(3, 20)
			},
			wantSQL: "SELECT " + runColumns + " FROM " + runFrom +
				" ORDER BY i.created_at DESC LIMIT 20 OFFSET 40",
		},
		{
			name: "client sort overrides default",
			sort: byCreated,
			build: func(b *query.Builder) (string, []any) {
				return b.OrderByFields(query.ParseSortFields("name,-status")).Build()
			},
			wantSQL: "SELECT " + runColumns + " FROM " + runFrom +
				" ORDER BY p.name ASC, i.status DESC",
		},
		{
			name: "unmapped sort fields ignored",
			sort: byCreated,
			build: func(b *query.Builder) (string, []any) {
				return b.OrderByFields([]query.SortField{{Field: "1; DROP TABLE instances"}}).Build()
			},
			wantSQL: "SELECT " + runColumns + " FROM " + runFrom +
				" ORDER BY i.created_at DESC",
		},
		{
			name: "single ignores conditions",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereEquals("Status", "FAILED").BuildSingle("ID", id)
			},
			wantSQL:  "SELECT " + runColumns + " FROM " + runFrom + " WHERE i.id = $1",
			wantArgs: []any{id},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := query.NewBuilder(runProjection(), tt.sort...)
			sql, args := tt.build(b)

			if sql != tt.wantSQL {
				t.Errorf("sql = %q\nwant  %q", sql, tt.wantSQL)
			}
			if !slices.Equal(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}
