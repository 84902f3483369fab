package execution

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/internal/agents"
	"github.com/JaimeStill/rainn/internal/instances"
	"github.com/JaimeStill/rainn/pkg/llm"
	"github.com/JaimeStill/rainn/pkg/metrics"
)

// Plan is everything the engine needs to execute one run's stages.
type Plan struct {
	InstanceID   uuid.UUID
	ArtifactsDir string
	Stages       []agents.Stage
	MasterPrompt string
	Model        string
	System       string
	InputPath    string
}

// StageOutcome is the result of one executed stage. Err is set when the
// stage failed; ArtifactPath and OutputType are set when it completed.
type StageOutcome struct {
	StageID      uuid.UUID
	Order        int
	Name         string
	ArtifactPath string
	OutputType   OutputType
	Duration     time.Duration
	Err          error
}

// Failed reports whether the stage failed.
func (o StageOutcome) Failed() bool {
	return o.Err != nil
}

// Outcome is the result of executing a plan. FinalPath is empty when the
// plan had no executable stages.
type Outcome struct {
	Stages    []StageOutcome
	FinalPath string
	FinalType OutputType
}

// Failure returns the failed stage, or nil when every stage completed.
func (o *Outcome) Failure() *StageOutcome {
	for i := range o.Stages {
		if o.Stages[i].Failed() {
			return &o.Stages[i]
		}
	}
	return nil
}

// Engine executes an agent's non-input stages in order, chaining each
// stage's artifact into the next stage's prompt and stopping at the first
// failed stage.
type Engine struct {
	model      llm.Client
	classifier *Classifier
	recorder   instances.StageRecorder
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// NewEngine creates an Engine. rec may be nil.
func NewEngine(
	model llm.Client,
	classifier *Classifier,
	recorder instances.StageRecorder,
	rec *metrics.Recorder,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		model:      model,
		classifier: classifier,
		recorder:   recorder,
		metrics:    rec,
		logger:     logger.With("system", "engine"),
	}
}

// ExecutableStages returns stages sorted by position with input stages removed.
// The input slice is not modified.
func ExecutableStages(stages []agents.Stage) []agents.Stage {
	sorted := make([]agents.Stage, len(stages))
	copy(sorted, stages)
	agents.SortStages(sorted)

	exec := make([]agents.Stage, 0, len(sorted))
	for _, s := range sorted {
		if s.IsInput() {
			continue
		}
		exec = append(exec, s)
	}
	return exec
}

// Execute runs the plan. A failed stage is reported in the Outcome, not as
// an error; the returned error is reserved for stage bookkeeping failures,
// which also stop execution.
func (e *Engine) Execute(ctx context.Context, plan Plan) (*Outcome, error) {
	outcome := &Outcome{}
	current := plan.InputPath

	for i, stage := range ExecutableStages(plan.Stages) {
		order := i + 1
		name := strings.TrimSpace(stage.Type)

		record, err := e.recorder.CreateStage(ctx, plan.InstanceID, order, name)
		if err != nil {
			return outcome, fmt.Errorf("record stage %d: %w", order, err)
		}

		so := e.runStage(ctx, plan, stage, order, current)
		so.StageID = record.ID
		so.Name = name
		outcome.Stages = append(outcome.Stages, so)

		if so.Failed() {
			e.metrics.StageFinished(string(instances.StatusFailed), so.Duration)
			e.logger.WarnContext(
				ctx, "stage failed",
				"instance_id", plan.InstanceID,
				"stage", name,
				"order", order,
				"error", so.Err,
			)

			if err := e.recorder.FailStage(context.WithoutCancel(ctx), record.ID, so.Err.Error()); err != nil {
				e.logger.ErrorContext(ctx, "mark stage failed", "instance_id", plan.InstanceID, "order", order, "error", err)
			}
			break
		}

		if err := e.recorder.CompleteStage(ctx, record.ID, so.ArtifactPath); err != nil {
			// Stale reaping only visits stages of RUNNING runs.
			if ferr := e.recorder.FailStage(context.WithoutCancel(ctx), record.ID, err.Error()); ferr != nil {
				e.logger.ErrorContext(ctx, "mark stage failed", "instance_id", plan.InstanceID, "order", order, "error", ferr)
			}
			return outcome, fmt.Errorf("complete stage %d: %w", order, err)
		}

		e.metrics.StageFinished(string(instances.StatusCompleted), so.Duration)
		e.logger.InfoContext(
			ctx, "stage completed",
			"instance_id", plan.InstanceID,
			"stage", name,
			"order", order,
			"output_type", so.OutputType,
			"duration", so.Duration,
		)

		current = so.ArtifactPath
		outcome.FinalPath = so.ArtifactPath
		outcome.FinalType = so.OutputType
	}

	return outcome, nil
}

func (e *Engine) runStage(ctx context.Context, plan Plan, stage agents.Stage, order int, inputPath string) StageOutcome {
	start := time.Now()
	so := StageOutcome{Order: order}

	fail := func(err error) StageOutcome {
		so.Err = err
		so.Duration = time.Since(start)
		return so
	}

	input, err := os.ReadFile(inputPath)
	if err != nil {
		return fail(fmt.Errorf("read stage input: %w", err))
	}

	prompt := BuildStagePrompt(plan.MasterPrompt, stage, string(input))

	output, err := e.model.Generate(ctx, plan.Model, prompt, plan.System)
	if err != nil {
		return fail(err)
	}
	if strings.TrimSpace(output) == "" {
		return fail(llm.ErrEmptyResponse)
	}

	outputType := e.classifier.Classify(output)
	path := filepath.Join(
		plan.ArtifactsDir,
		instances.StageArtifactName(order, stage.Type, outputType.Extension()),
	)

	if err := os.WriteFile(path, []byte(output), 0o644); err != nil {
		return fail(fmt.Errorf("write stage artifact: %w", err))
	}

	so.ArtifactPath = path
	so.OutputType = outputType
	so.Duration = time.Since(start)
	return so
}
