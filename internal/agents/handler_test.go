package agents_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/internal/agents"
	"github.com/JaimeStill/rainn/pkg/pagination"
	"github.com/JaimeStill/rainn/pkg/routes"
)

type mockSystem struct {
	listFn     func(ctx context.Context, page pagination.PageRequest, filters agents.Filters) (*pagination.PageResult[agents.Agent], error)
	findFn     func(ctx context.Context, id uuid.UUID) (*agents.Agent, error)
	createFn   func(ctx context.Context, cmd agents.CreateCommand) (*agents.Agent, error)
	deleteFn   func(ctx context.Context, id uuid.UUID) error
	addStageFn func(ctx context.Context, agentID uuid.UUID, cmd agents.StageCommand) (*agents.Stage, error)
}

func (m *mockSystem) Handler() *agents.Handler {
	return agents.NewHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil)), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters agents.Filters) (*pagination.PageResult[agents.Agent], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*agents.Agent, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Create(ctx context.Context, cmd agents.CreateCommand) (*agents.Agent, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockSystem) Update(context.Context, uuid.UUID, agents.UpdateCommand) (*agents.Agent, error) {
	panic("unexpected Update")
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSystem) Stages(context.Context, uuid.UUID) ([]agents.Stage, error) {
	panic("unexpected Stages")
}

func (m *mockSystem) AddStage(ctx context.Context, agentID uuid.UUID, cmd agents.StageCommand) (*agents.Stage, error) {
	return m.addStageFn(ctx, agentID, cmd)
}

func (m *mockSystem) UpdateStage(context.Context, uuid.UUID, agents.StageCommand) (*agents.Stage, error) {
	panic("unexpected UpdateStage")
}

func (m *mockSystem) DeleteStage(context.Context, uuid.UUID) error {
	panic("unexpected DeleteStage")
}

func (m *mockSystem) Names(context.Context) ([]string, error) {
	panic("unexpected Names")
}

func serve(sys *mockSystem, method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler().Routes())

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

var agentID = uuid.MustParse("6f1c2b1e-8d7a-4c55-9b1e-2f0a3d4c5b6a")

func TestHandlerList(t *testing.T) {
	var gotPage pagination.PageRequest
	var gotFilters agents.Filters

	sys := &mockSystem{
		listFn: func(_ context.Context, page pagination.PageRequest, filters agents.Filters) (*pagination.PageResult[agents.Agent], error) {
			gotPage, gotFilters = page, filters
			result := pagination.NewPageResult([]agents.Agent{{ID: agentID, Name: "Summarizer"}}, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}

	rec := serve(sys, "GET", "/agents?page=2&page_size=5&name=summ", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotPage.Page != 2 || gotPage.PageSize != 5 {
		t.Errorf("page = %+v, want page 2 size 5", gotPage)
	}
	if gotFilters.Name == nil || *gotFilters.Name != "summ" {
		t.Errorf("filters.Name = %v, want summ", gotFilters.Name)
	}

	var body pagination.PageResult[agents.Agent]
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Name != "Summarizer" {
		t.Errorf("data = %+v", body.Data)
	}
}

func TestHandlerRoles(t *testing.T) {
	rec := serve(&mockSystem{}, "GET", "/agents/roles", "")

	var roles []string
	if err := json.NewDecoder(rec.Body).Decode(&roles); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"generic", "final_output", "visual_output"}
	if strings.Join(roles, ",") != strings.Join(want, ",") {
		t.Errorf("roles = %v, want %v", roles, want)
	}
}

func TestHandlerFind(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
	}{
		{"found", "/agents/" + agentID.String(), nil, http.StatusOK},
		{"missing", "/agents/" + agentID.String(), agents.ErrNotFound, http.StatusNotFound},
		{"malformed id", "/agents/not-a-uuid", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &mockSystem{
				findFn: func(_ context.Context, id uuid.UUID) (*agents.Agent, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &agents.Agent{ID: id, Name: "Summarizer"}, nil
				},
			}

			if rec := serve(sys, "GET", tt.path, ""); rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandlerCreate(t *testing.T) {
	var got agents.CreateCommand
	sys := &mockSystem{
		createFn: func(_ context.Context, cmd agents.CreateCommand) (*agents.Agent, error) {
			got = cmd
			return &agents.Agent{ID: agentID, Name: cmd.Name}, nil
		},
	}

	body := `{"name":"Summarizer","stages":[{"type":"input"},{"type":"output","description":"Write it","role":"final_output"}]}`
	rec := serve(sys, "POST", "/agents", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if len(got.Stages) != 2 || got.Stages[1].Role != agents.RoleFinalOutput {
		t.Errorf("stages = %+v", got.Stages)
	}
}

func TestHandlerCreateRejectsBadBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"name":`},
		{"unknown role", `{"name":"x","stages":[{"type":"a","role":"oracle"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &mockSystem{
				createFn: func(context.Context, agents.CreateCommand) (*agents.Agent, error) {
					t.Fatal("Create should not be called")
					return nil, nil
				},
			}

			if rec := serve(sys, "POST", "/agents", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandlerDeleteInUse(t *testing.T) {
	sys := &mockSystem{
		deleteFn: func(context.Context, uuid.UUID) error { return agents.ErrInUse },
	}

	rec := serve(sys, "DELETE", "/agents/"+agentID.String(), "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestHandlerAddStage(t *testing.T) {
	var gotAgent uuid.UUID
	sys := &mockSystem{
		addStageFn: func(_ context.Context, id uuid.UUID, cmd agents.StageCommand) (*agents.Stage, error) {
			gotAgent = id
			return &agents.Stage{AgentID: id, Type: cmd.Type, Position: 3}, nil
		},
	}

	rec := serve(sys, "POST", "/agents/"+agentID.String()+"/stages", `{"type":"analysis"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if gotAgent != agentID {
		t.Errorf("agent id = %s, want %s", gotAgent, agentID)
	}
}
