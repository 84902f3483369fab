package api

import (
	"github.com/JaimeStill/rainn/internal/agents"
	"github.com/JaimeStill/rainn/internal/execution"
	"github.com/JaimeStill/rainn/internal/flows"
	"github.com/JaimeStill/rainn/internal/instances"
	"github.com/JaimeStill/rainn/internal/processes"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Agents    agents.System
	Processes processes.System
	Instances instances.System
	Runtime   *execution.Runtime
	Flows     *flows.Exchange
	Sweeper   *instances.Sweeper
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	agentsSystem := agents.New(db, runtime.Logger, runtime.Pagination)
	processesSystem := processes.New(db, runtime.Logger, runtime.Pagination)

	instancesSystem := instances.New(
		db,
		runtime.Storage,
		instances.Config{
			Root: runtime.Runs.Root,
			TTL:  runtime.Runs.TTLDuration(),
		},
		runtime.Logger,
		runtime.Pagination,
	)

	engine := execution.NewEngine(
		runtime.Model,
		execution.DefaultClassifier(),
		instancesSystem,
		runtime.Metrics,
		runtime.Logger,
	)

	runtimeSystem := execution.NewRuntime(
		instancesSystem,
		agentsSystem,
		processesSystem,
		execution.NewNormalizer(runtime.Logger),
		engine,
		runtime.Metrics,
		runtime.Logger,
	)

	sweeper := instances.NewSweeper(
		instancesSystem,
		instances.SweepConfig{
			Interval:   runtime.Runs.SweepIntervalDuration(),
			Retention:  runtime.Runs.RetentionDuration(),
			StaleAfter: runtime.Runs.StaleAfterDuration(),
		},
		runtime.Metrics,
		runtime.Logger,
	)

	return &Domain{
		Agents:    agentsSystem,
		Processes: processesSystem,
		Instances: instancesSystem,
		Runtime:   runtimeSystem,
		Flows:     flows.New(agentsSystem, processesSystem, runtime.Logger),
		Sweeper:   sweeper,
	}
}
