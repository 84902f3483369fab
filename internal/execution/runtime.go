// Package execution runs agents: it normalizes uploaded input, compiles the
// master prompt, executes stages against the model, and records the outcome
// on the run.
package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/internal/agents"
	"github.com/JaimeStill/rainn/internal/instances"
	"github.com/JaimeStill/rainn/internal/processes"
	"github.com/JaimeStill/rainn/pkg/metrics"
)

// AgentFinder loads an agent with its stages.
type AgentFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*agents.Agent, error)
}

// ProcessFinder loads a process.
type ProcessFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*processes.Process, error)
}

// RunStore is the part of the run lifecycle the runtime drives.
type RunStore interface {
	instances.StageRecorder
	Create(ctx context.Context, processID, agentID uuid.UUID) (*instances.Instance, error)
	AllocateFolder(ctx context.Context, id uuid.UUID) (string, error)
	Finalize(ctx context.Context, id uuid.UUID, status instances.Status) error
}

// Result describes a finished run. A failed run carries "Error: <reason>"
// as its output text and no artifact path.
type Result struct {
	InstanceID         *uuid.UUID       `json:"task_instance_id"`
	Status             instances.Status `json:"status"`
	OutputText         string           `json:"output_text"`
	OutputType         OutputType       `json:"output_type"`
	OutputArtifactPath string           `json:"output_artifact_path"`
}

// Descriptor is written to the run folder once a run completes.
type Descriptor struct {
	InstanceID uuid.UUID  `json:"task_instance_id"`
	OutputType OutputType `json:"output_type"`
	OutputPath string     `json:"output_path"`
}

// Runtime is the single entry point for executing a process.
type Runtime struct {
	runs       RunStore
	agents     AgentFinder
	processes  ProcessFinder
	normalizer *Normalizer
	engine     *Engine
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// NewRuntime creates a Runtime. rec may be nil.
func NewRuntime(
	runs RunStore,
	agentFinder AgentFinder,
	processFinder ProcessFinder,
	normalizer *Normalizer,
	engine *Engine,
	rec *metrics.Recorder,
	logger *slog.Logger,
) *Runtime {
	return &Runtime{
		runs:       runs,
		agents:     agentFinder,
		processes:  processFinder,
		normalizer: normalizer,
		engine:     engine,
		metrics:    rec,
		logger:     logger.With("system", "runtime"),
	}
}

// run tracks the records created so far, for failure bookkeeping.
type run struct {
	instance   *instances.Instance
	stage0     *instances.StageInstance
	stage0Done bool
}

// Run executes process against files and always returns a Result; failures
// are recorded on the run and reported in the Result, never returned.
// A nil agentID runs the process's own agent.
func (rt *Runtime) Run(ctx context.Context, processID uuid.UUID, agentID uuid.UUID, files []File) Result {
	var state run

	result, err := rt.execute(ctx, processID, agentID, files, &state)
	if err == nil {
		rt.metrics.RunFinished(string(instances.StatusCompleted))
		return result
	}

	return rt.fail(ctx, &state, err)
}

func (rt *Runtime) execute(ctx context.Context, processID, agentID uuid.UUID, files []File, state *run) (Result, error) {
	if agentID == uuid.Nil {
		proc, err := rt.processes.Find(ctx, processID)
		if err != nil {
			return Result{}, fmt.Errorf("load process: %w", err)
		}
		agentID = proc.AgentID
	}

	inst, err := rt.runs.Create(ctx, processID, agentID)
	if err != nil {
		return Result{}, err
	}
	state.instance = inst

	rt.logger.InfoContext(ctx, "run started", "instance_id", inst.ID, "process_id", processID, "files", len(files))

	folder, err := rt.runs.AllocateFolder(ctx, inst.ID)
	if err != nil {
		return Result{}, err
	}
	artifactsDir := filepath.Join(folder, instances.ArtifactsDir)
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create artifacts folder: %w", err)
	}

	stage0, err := rt.runs.CreateStage(ctx, inst.ID, 0, agents.InputStageType)
	if err != nil {
		return Result{}, err
	}
	state.stage0 = stage0

	text, inputPath, err := rt.normalizer.Normalize(ctx, files, folder)
	if err != nil {
		return Result{}, err
	}

	if err := rt.runs.CompleteStage(ctx, stage0.ID, inputPath); err != nil {
		return Result{}, err
	}
	state.stage0Done = true

	proc, err := rt.processes.Find(ctx, processID)
	if err != nil {
		return Result{}, fmt.Errorf("load process: %w", err)
	}

	agent, err := rt.agents.Find(ctx, agentID)
	if err != nil {
		return Result{}, fmt.Errorf("load agent: %w", err)
	}

	stages := make([]agents.Stage, len(agent.Stages))
	copy(stages, agent.Stages)
	agents.SortStages(stages)

	master := CompileMasterPrompt(agent, stages, text)
	if err := os.WriteFile(filepath.Join(folder, instances.MasterPromptFile), []byte(master), 0o644); err != nil {
		return Result{}, fmt.Errorf("write master prompt: %w", err)
	}

	outcome, err := rt.engine.Execute(ctx, Plan{
		InstanceID:   inst.ID,
		ArtifactsDir: artifactsDir,
		Stages:       stages,
		MasterPrompt: master,
		Model:        proc.Model,
		System:       proc.Priming,
		InputPath:    inputPath,
	})
	if err != nil {
		return Result{}, err
	}
	if failed := outcome.Failure(); failed != nil {
		return Result{}, failed.Err
	}

	output, outputType, outputPath := text, OutputText, inputPath
	if outcome.FinalPath != "" {
		data, err := os.ReadFile(outcome.FinalPath)
		if err != nil {
			return Result{}, fmt.Errorf("read final artifact: %w", err)
		}
		output, outputType, outputPath = string(data), outcome.FinalType, outcome.FinalPath
	}

	if err := writeDescriptor(folder, Descriptor{
		InstanceID: inst.ID,
		OutputType: outputType,
		OutputPath: outputPath,
	}); err != nil {
		return Result{}, err
	}

	if err := rt.runs.Finalize(ctx, inst.ID, instances.StatusCompleted); err != nil {
		return Result{}, err
	}

	rt.logger.InfoContext(
		ctx, "run completed",
		"instance_id", inst.ID,
		"stages", len(outcome.Stages),
		"output_type", outputType,
	)

	id := inst.ID
	return Result{
		InstanceID:         &id,
		Status:             instances.StatusCompleted,
		OutputText:         output,
		OutputType:         outputType,
		OutputArtifactPath: outputPath,
	}, nil
}

// fail records err on whatever records exist and converts it to a Result.
// Bookkeeping failures are logged and never replace err.
func (rt *Runtime) fail(ctx context.Context, state *run, err error) Result {
	ctx = context.WithoutCancel(ctx)
	result := Result{
		Status:     instances.StatusFailed,
		OutputText: "Error: " + err.Error(),
		OutputType: OutputText,
	}

	if state.stage0 != nil && !state.stage0Done {
		if ferr := rt.runs.FailStage(ctx, state.stage0.ID, err.Error()); ferr != nil {
			rt.logger.ErrorContext(ctx, "mark input stage failed", "error", ferr)
		}
	}

	if state.instance != nil {
		id := state.instance.ID
		result.InstanceID = &id

		if ferr := rt.runs.Finalize(ctx, id, instances.StatusFailed); ferr != nil &&
			!errors.Is(ferr, instances.ErrAlreadyFinalized) {
			rt.logger.ErrorContext(ctx, "mark run failed", "instance_id", id, "error", ferr)
		}
	}

	rt.metrics.RunFinished(string(instances.StatusFailed))
	rt.logger.WarnContext(ctx, "run failed", "instance_id", result.InstanceID, "error", err)
	return result
}

func writeDescriptor(folder string, d Descriptor) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output descriptor: %w", err)
	}
	if err := os.WriteFile(filepath.Join(folder, instances.DescriptorFile), data, 0o644); err != nil {
		return fmt.Errorf("write output descriptor: %w", err)
	}
	return nil
}
