package flows

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/internal/agents"
	"github.com/JaimeStill/rainn/internal/processes"
)

const (
	defaultImportName  = "Imported Flow"
	outputStageType    = "output"
	outputStageDetails = "Present the final response for the user."
)

// AgentStore is the part of the agent domain the exchange needs.
type AgentStore interface {
	Find(ctx context.Context, id uuid.UUID) (*agents.Agent, error)
	Create(ctx context.Context, cmd agents.CreateCommand) (*agents.Agent, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Names(ctx context.Context) ([]string, error)
}

// ProcessStore is the part of the process domain the exchange needs.
type ProcessStore interface {
	Find(ctx context.Context, id uuid.UUID) (*processes.Process, error)
	Create(ctx context.Context, cmd processes.CreateCommand) (*processes.Process, error)
	Names(ctx context.Context) ([]string, error)
}

// Exchange converts between stored processes and flow documents.
type Exchange struct {
	agents    AgentStore
	processes ProcessStore
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an Exchange.
func New(agentStore AgentStore, processStore ProcessStore, logger *slog.Logger) *Exchange {
	return &Exchange{
		agents:    agentStore,
		processes: processStore,
		logger:    logger.With("system", "flows"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Handler returns the HTTP handler for the exchange.
func (x *Exchange) Handler() *Handler {
	return NewHandler(x, x.logger)
}

// Export builds a document from a process and its agent. Input stages are
// omitted; order keeps each stage's place in the agent's full stage list.
func (x *Exchange) Export(ctx context.Context, processID uuid.UUID) (*Document, error) {
	proc, err := x.processes.Find(ctx, processID)
	if err != nil {
		return nil, err
	}

	agent, err := x.agents.Find(ctx, proc.AgentID)
	if err != nil {
		return nil, err
	}

	stages := slices.Clone(agent.Stages)
	agents.SortStages(stages)

	flowStages := make([]FlowStage, 0, len(stages))
	for i, s := range stages {
		if s.IsInput() {
			continue
		}
		flowStages = append(flowStages, FlowStage{
			Order:       i + 1,
			Name:        s.Type,
			Description: s.Description,
		})
	}

	return &Document{
		SchemaVersion: SchemaVersion,
		ExportedAt:    x.now().Format(TimeFormat),
		Flow: Flow{
			AgentName:       proc.Name,
			AIModel:         proc.Model,
			TaskTitle:       agent.Name,
			TaskDescription: agent.Description,
			PrimerText:      proc.Priming,
			Stages:          flowStages,
		},
		Source: Source,
	}, nil
}

// Import creates an agent and a process from a validated document. Names
// that collide with existing records get an "(Imported)" suffix. The agent
// is removed again if the process cannot be created.
func (x *Exchange) Import(ctx context.Context, doc *Document) (*processes.Process, error) {
	agentNames, err := x.agents.Names(ctx)
	if err != nil {
		return nil, err
	}
	processNames, err := x.processes.Names(ctx)
	if err != nil {
		return nil, err
	}

	flow := doc.Flow

	agent, err := x.agents.Create(ctx, agents.CreateCommand{
		Name:        UniqueName(flow.TaskTitle, agentNames),
		Description: flow.TaskDescription,
		Stages:      importStages(flow.Stages),
	})
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	proc, err := x.processes.Create(ctx, processes.CreateCommand{
		AgentID: agent.ID,
		Name:    UniqueName(flow.AgentName, processNames),
		Priming: flow.PrimerText,
		Model:   flow.AIModel,
	})
	if err != nil {
		if derr := x.agents.Delete(context.WithoutCancel(ctx), agent.ID); derr != nil {
			x.logger.Error("remove agent after failed import", "agent_id", agent.ID, "error", derr)
		}
		return nil, fmt.Errorf("create process: %w", err)
	}

	x.logger.Info(
		"flow imported",
		"process_id", proc.ID,
		"agent_id", agent.ID,
		"stages", len(agent.Stages),
	)
	return proc, nil
}

func importStages(stages []FlowStage) []agents.StageCommand {
	sorted := slices.Clone(stages)
	slices.SortStableFunc(sorted, func(a, b FlowStage) int {
		return cmp.Compare(a.Order, b.Order)
	})

	var cmds []agents.StageCommand
	hasOutput := false

	for _, s := range sorted {
		name := strings.TrimSpace(s.Name)
		desc := strings.TrimSpace(s.Description)

		if strings.EqualFold(name, agents.InputStageType) {
			continue
		}
		if strings.EqualFold(name, outputStageType) {
			hasOutput = true
		}
		if name == "" || desc == "" {
			continue
		}
		cmds = append(cmds, agents.StageCommand{Type: name, Description: desc})
	}

	if !hasOutput {
		cmds = append(cmds, agents.StageCommand{Type: outputStageType, Description: outputStageDetails})
	}
	return cmds
}

// UniqueName returns base, or a suffixed variant of it, that is not in
// existing. A blank base becomes "Imported Flow".
func UniqueName(base string, existing []string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = defaultImportName
	}

	candidate := base
	if slices.Contains(existing, base) {
		candidate = base + " (Imported)"
	}
	if !slices.Contains(existing, candidate) {
		return candidate
	}

	for n := 1; ; n++ {
		name := fmt.Sprintf("%s (%d)", candidate, n)
		if !slices.Contains(existing, name) {
			return name
		}
	}
}
