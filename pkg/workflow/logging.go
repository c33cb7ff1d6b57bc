package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ExecutorOption configures an Executor instance.
type ExecutorOption func(*Executor)

// OperationLogger records one entry per pipeline run.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a finished pipeline run.
type OperationLog struct {
	Operation   string
	Flow        string
	RunID       string
	Status      string
	Kind        ErrorKind
	FailedStep  string
	StepsRun    int
	Commits     []Commit
	Compensated bool
	Duration    time.Duration
	Error       error
}

// FinalizeFunc is invoked exactly once after every run, whatever the outcome.
type FinalizeFunc func(ctx context.Context, outcome Outcome)

// WithOperationLogger wires a logger that receives one entry per run.
func WithOperationLogger(logger OperationLogger) ExecutorOption {
	return func(executor *Executor) {
		executor.logger = logger
	}
}

// WithTracer replaces the default global tracer.
func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(executor *Executor) {
		if tracer != nil {
			executor.tracer = tracer
		}
	}
}

// WithFinalizeHook appends a hook that runs after every run, before the
// per-run finalizer passed to Run.
func WithFinalizeHook(hook FinalizeFunc) ExecutorOption {
	return func(executor *Executor) {
		if hook != nil {
			executor.hooks = append(executor.hooks, hook)
		}
	}
}

// WithCompensation makes a failed run undo the commits of the guards that
// succeeded before the failure, in reverse order. Without it partial commits
// stay in the store.
func WithCompensation() ExecutorOption {
	return func(executor *Executor) {
		executor.compensate = true
	}
}

// WithRunIDGenerator replaces the uuid-based run id generator.
func WithRunIDGenerator(generate func() string) ExecutorOption {
	return func(executor *Executor) {
		if generate != nil {
			executor.newRunID = generate
		}
	}
}

// WithClock replaces time.Now for run durations.
func WithClock(now func() time.Time) ExecutorOption {
	return func(executor *Executor) {
		if now != nil {
			executor.now = now
		}
	}
}

func (executor *Executor) logOperation(ctx context.Context, outcome Outcome, duration time.Duration) {
	if executor.logger == nil {
		return
	}
	entry := OperationLog{
		Operation:   operationRun,
		Flow:        outcome.Flow,
		RunID:       outcome.RunID,
		Status:      operationStatusOK,
		Kind:        outcome.Kind(),
		FailedStep:  outcome.FailedStep,
		StepsRun:    outcome.StepsRun,
		Commits:     outcome.Commits,
		Compensated: outcome.Compensated,
		Duration:    duration,
		Error:       outcome.Err,
	}
	if outcome.Err != nil {
		entry.Status = operationStatusError
	}
	executor.logger.LogOperation(ctx, entry)
}
