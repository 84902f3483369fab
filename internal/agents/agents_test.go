package agents_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/internal/agents"
)

func TestParseStageRole(t *testing.T) {
	tests := []struct {
		input   string
		want    agents.StageRole
		wantErr bool
	}{
		{"", "", false},
		{"generic", agents.RoleGeneric, false},
		{" final_output ", agents.RoleFinalOutput, false},
		{"visual_output", agents.RoleVisualOutput, false},
		{"summary", "", true},
		{"FINAL_OUTPUT", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := agents.ParseStageRole(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStageRole(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, agents.ErrInvalidRole) {
				t.Errorf("error = %v, want ErrInvalidRole", err)
			}
			if got != tt.want {
				t.Errorf("ParseStageRole(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStageCommandRejectsUnknownRole(t *testing.T) {
	var cmd agents.StageCommand
	err := json.Unmarshal([]byte(`{"type":"analysis","role":"oracle"}`), &cmd)
	if !errors.Is(err, agents.ErrInvalidRole) {
		t.Errorf("Unmarshal error = %v, want ErrInvalidRole", err)
	}
}

func TestInferRole(t *testing.T) {
	tests := []struct {
		name        string
		stageType   string
		description string
		want        agents.StageRole
	}{
		{"output type", "output", "Write the report", agents.RoleFinalOutput},
		{"output type mixed case", " Output ", "", agents.RoleFinalOutput},
		{"output wins over visual", "output", "draw a graph", agents.RoleFinalOutput},
		{"graph type", "graph", "", agents.RoleVisualOutput},
		{"visual in description", "render", "Produce a Visual summary", agents.RoleVisualOutput},
		{"graph in description", "analysis", "include a bar graph", agents.RoleVisualOutput},
		{"plain", "analysis", "Extract key facts", agents.RoleGeneric},
		{"output-like type", "outputs", "", agents.RoleGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agents.InferRole(tt.stageType, tt.description); got != tt.want {
				t.Errorf("InferRole(%q, %q) = %q, want %q", tt.stageType, tt.description, got, tt.want)
			}
		})
	}
}

func TestEffectiveRole(t *testing.T) {
	explicit := agents.Stage{Type: "output", Role: agents.RoleGeneric}
	if got := explicit.EffectiveRole(); got != agents.RoleGeneric {
		t.Errorf("explicit EffectiveRole() = %q, want generic", got)
	}

	inferred := agents.Stage{Type: "output"}
	if got := inferred.EffectiveRole(); got != agents.RoleFinalOutput {
		t.Errorf("inferred EffectiveRole() = %q, want final_output", got)
	}
}

func TestIsInput(t *testing.T) {
	tests := []struct {
		stageType string
		want      bool
	}{
		{"input", true},
		{" INPUT ", true},
		{"inputs", false},
		{"analysis", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.stageType, func(t *testing.T) {
			if got := (agents.Stage{Type: tt.stageType}).IsInput(); got != tt.want {
				t.Errorf("IsInput(%q) = %v, want %v", tt.stageType, got, tt.want)
			}
		})
	}
}

func TestSortStages(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	idA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	idB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	stages := []agents.Stage{
		{ID: idB, Type: "tie-b", Position: 1, CreatedAt: base},
		{ID: uuid.New(), Type: "last", Position: 2, CreatedAt: base},
		{ID: uuid.New(), Type: "later", Position: 1, CreatedAt: base.Add(time.Minute)},
		{ID: idA, Type: "tie-a", Position: 1, CreatedAt: base},
		{ID: uuid.New(), Type: "input", Position: 0, CreatedAt: base.Add(time.Hour)},
	}

	agents.SortStages(stages)

	want := []string{"input", "tie-a", "tie-b", "later", "last"}
	for i, s := range stages {
		if s.Type != want[i] {
			t.Errorf("stages[%d] = %s, want %s", i, s.Type, want[i])
		}
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{agents.ErrNotFound, http.StatusNotFound},
		{agents.ErrStageNotFound, http.StatusNotFound},
		{agents.ErrDuplicate, http.StatusConflict},
		{agents.ErrInUse, http.StatusConflict},
		{agents.ErrNameRequired, http.StatusBadRequest},
		{agents.ErrEmptyStage, http.StatusBadRequest},
		{agents.ErrInvalidRole, http.StatusBadRequest},
		{agents.ErrInvalidPosition, http.StatusBadRequest},
		{fmt.Errorf("create agent: %w", agents.ErrDuplicate), http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := agents.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	f := agents.FiltersFromQuery(url.Values{"name": {"summar"}})
	if f.Name == nil || *f.Name != "summar" {
		t.Errorf("Name = %v, want summar", f.Name)
	}

	if f := agents.FiltersFromQuery(url.Values{}); f.Name != nil {
		t.Errorf("empty query Name = %v, want nil", *f.Name)
	}
}
