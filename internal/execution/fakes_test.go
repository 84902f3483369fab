package execution_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/internal/agents"
	"github.com/JaimeStill/rainn/internal/instances"
	"github.com/JaimeStill/rainn/internal/processes"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type modelFunc func(ctx context.Context, model, prompt, system string) (string, error)

func (f modelFunc) Generate(ctx context.Context, model, prompt, system string) (string, error) {
	return f(ctx, model, prompt, system)
}

// memoryRuns is an in-memory RunStore that keeps every stage record.
type memoryRuns struct {
	mu        sync.Mutex
	root      string
	instance  *instances.Instance
	stages    []*instances.StageInstance
	finalized []instances.Status
	createErr error
}

func newMemoryRuns(t *testing.T) *memoryRuns {
	return &memoryRuns{root: t.TempDir()}
}

func (m *memoryRuns) Create(_ context.Context, processID, agentID uuid.UUID) (*instances.Instance, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.instance = &instances.Instance{
		ID:        uuid.New(),
		ProcessID: processID,
		AgentID:   agentID,
		Status:    instances.StatusRunning,
	}
	return m.instance, nil
}

func (m *memoryRuns) AllocateFolder(_ context.Context, id uuid.UUID) (string, error) {
	folder := instances.FolderPath(m.root, id)
	if err := os.MkdirAll(filepath.Join(folder, instances.ArtifactsDir), 0o755); err != nil {
		return "", err
	}
	m.instance.RunFolder = folder
	return folder, nil
}

func (m *memoryRuns) Finalize(_ context.Context, _ uuid.UUID, status instances.Status) error {
	if len(m.finalized) > 0 {
		return instances.ErrAlreadyFinalized
	}
	m.finalized = append(m.finalized, status)
	m.instance.Status = status
	return nil
}

func (m *memoryRuns) CreateStage(_ context.Context, instanceID uuid.UUID, order int, name string) (*instances.StageInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &instances.StageInstance{
		ID:         uuid.New(),
		InstanceID: instanceID,
		Order:      order,
		Name:       name,
		Status:     instances.StatusRunning,
	}
	m.stages = append(m.stages, s)
	return s, nil
}

func (m *memoryRuns) CompleteStage(_ context.Context, stageID uuid.UUID, artifactPath string) error {
	return m.finish(stageID, func(s *instances.StageInstance) {
		s.Status = instances.StatusCompleted
		s.ArtifactPath = &artifactPath
	})
}

func (m *memoryRuns) FailStage(_ context.Context, stageID uuid.UUID, message string) error {
	return m.finish(stageID, func(s *instances.StageInstance) {
		s.Status = instances.StatusFailed
		s.Error = &message
	})
}

func (m *memoryRuns) finish(stageID uuid.UUID, apply func(*instances.StageInstance)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.stages {
		if s.ID == stageID && s.Status == instances.StatusRunning {
			apply(s)
			return nil
		}
	}
	return instances.ErrStageNotFound
}

func (m *memoryRuns) statuses() []instances.Status {
	out := make([]instances.Status, len(m.stages))
	for i, s := range m.stages {
		out[i] = s.Status
	}
	return out
}

// completeFails records stages in memoryRuns but refuses every completion.
type completeFails struct {
	*memoryRuns
	err error
}

func (c *completeFails) CompleteStage(context.Context, uuid.UUID, string) error {
	return c.err
}

type agentFinder map[uuid.UUID]*agents.Agent

func (f agentFinder) Find(_ context.Context, id uuid.UUID) (*agents.Agent, error) {
	if a, ok := f[id]; ok {
		return a, nil
	}
	return nil, agents.ErrNotFound
}

type processFinder map[uuid.UUID]*processes.Process

func (f processFinder) Find(_ context.Context, id uuid.UUID) (*processes.Process, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, processes.ErrNotFound
}

var errModelDown = errors.New("model backend unavailable")

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
