package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	errorOperationPipeline = "pipeline"
	errorSubjectCommit     = "commit"
	errorCodeUndo          = "undo"

	attributeFlow       = "workflow.flow"
	attributeRunID      = "workflow.run_id"
	attributeGuard      = "workflow.guard"
	attributeStep       = "workflow.step"
	attributeState      = "workflow.state"
	attributeErrorKind  = "workflow.error_kind"
	attributeCompensate = "workflow.compensated"
	eventGuard          = "guard"
)

// State is a pipeline run state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Pipeline is an ordered list of guards executed for one request.
type Pipeline struct {
	Name   string
	Guards []Guard
}

// NewPipeline validates and builds a Pipeline.
func NewPipeline(name string, guards ...Guard) (Pipeline, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Pipeline{}, fmt.Errorf("%w: empty name", ErrInvalidPipeline)
	}
	if len(guards) == 0 {
		return Pipeline{}, fmt.Errorf("%w: no guards", ErrInvalidPipeline)
	}
	for index, guard := range guards {
		if guard == nil {
			return Pipeline{}, fmt.Errorf("%w: guard %d is nil", ErrInvalidPipeline, index)
		}
	}
	return Pipeline{Name: trimmed, Guards: append([]Guard(nil), guards...)}, nil
}

// Outcome is the terminal result of one run.
type Outcome struct {
	RunID           string
	Flow            string
	Request         Request
	State           State
	Err             error
	FailedStep      string
	StepsRun        int
	Commits         []Commit
	Compensated     bool
	CompensationErr error
}

// Succeeded reports whether every guard passed.
func (outcome Outcome) Succeeded() bool {
	return outcome.State == StateSucceeded
}

// GuardError returns the guard failure, if the run failed with one.
func (outcome Outcome) GuardError() (GuardError, bool) {
	if outcome.Err == nil {
		return GuardError{}, false
	}
	return AsGuardError(outcome.Err)
}

// Kind returns the failure kind, or "" for successes and non-guard failures.
func (outcome Outcome) Kind() ErrorKind {
	guardError, ok := outcome.GuardError()
	if !ok {
		return ""
	}
	return guardError.Kind()
}

// Executor runs pipelines: guards in order, stopping at the first failure,
// then the finalize hooks exactly once.
type Executor struct {
	logger     OperationLogger
	tracer     trace.Tracer
	hooks      []FinalizeFunc
	compensate bool
	newRunID   func() string
	now        func() time.Time
}

// NewExecutor wires an Executor.
func NewExecutor(options ...ExecutorOption) *Executor {
	executor := &Executor{
		tracer:   otel.Tracer(tracerName),
		newRunID: uuid.NewString,
		now:      time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(executor)
		}
	}
	return executor
}

// Run executes pipeline against store for request. Commits made by guards
// before a failure stay in place unless the executor was built with
// WithCompensation. When store implements sync.Locker the lock is held for the
// whole run, finalize hooks included, so finalize must not start another run on
// the same store.
func (executor *Executor) Run(ctx context.Context, pipeline Pipeline, store ResourceStore, request Request, finalize FinalizeFunc) (outcome Outcome) {
	redacted := request
	redacted.Password = ""
	outcome = Outcome{
		RunID:   executor.newRunID(),
		Flow:    pipeline.Name,
		Request: redacted,
		State:   StatePending,
	}
	startedAt := executor.now()
	ctx, span := executor.tracer.Start(ctx, pipeline.Name, trace.WithAttributes(
		attribute.String(attributeFlow, pipeline.Name),
		attribute.String(attributeRunID, outcome.RunID),
	))

	if locker, ok := store.(sync.Locker); ok {
		locker.Lock()
		defer locker.Unlock()
	}
	activeGuard := ""
	defer func() {
		if recovered := recover(); recovered != nil {
			outcome.FailedStep = activeGuard
			outcome = executor.fail(store, outcome, fmt.Errorf("%w: %v", ErrGuardPanicked, recovered))
		}
		executor.finish(ctx, span, outcome, executor.now().Sub(startedAt), finalize)
	}()

	if store == nil {
		return executor.fail(store, outcome, fmt.Errorf("%w: nil store", ErrInvalidPipeline))
	}
	outcome.State = StateRunning
	for index, guard := range pipeline.Guards {
		outcome.StepsRun = index + 1
		activeGuard = guard.Name()
		span.AddEvent(eventGuard, trace.WithAttributes(
			attribute.String(attributeGuard, guard.Name()),
			attribute.Int(attributeStep, index),
		))
		commit, err := guard.Check(ctx, store, request)
		if err != nil {
			outcome.FailedStep = activeGuard
			return executor.fail(store, outcome, err)
		}
		outcome.Commits = append(outcome.Commits, commit)
	}
	outcome.State = StateSucceeded
	return outcome
}

func (executor *Executor) fail(store ResourceStore, outcome Outcome, err error) Outcome {
	outcome.State = StateFailed
	outcome.Err = err
	if !executor.compensate || store == nil || len(outcome.Commits) == 0 {
		return outcome
	}
	var undoErrors []error
	for index := len(outcome.Commits) - 1; index >= 0; index-- {
		if undoErr := outcome.Commits[index].Undo(store); undoErr != nil {
			undoErrors = append(undoErrors, WrapError(errorOperationPipeline, errorSubjectCommit, errorCodeUndo, undoErr))
		}
	}
	if len(undoErrors) > 0 {
		outcome.CompensationErr = fmt.Errorf("%w: %w", ErrCompensationFailure, errors.Join(undoErrors...))
		return outcome
	}
	outcome.Compensated = true
	return outcome
}

func (executor *Executor) finish(ctx context.Context, span trace.Span, outcome Outcome, duration time.Duration, finalize FinalizeFunc) {
	span.SetAttributes(
		attribute.String(attributeState, string(outcome.State)),
		attribute.Bool(attributeCompensate, outcome.Compensated),
	)
	if outcome.Err != nil {
		span.SetAttributes(attribute.String(attributeErrorKind, outcome.Kind().String()))
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	executor.logOperation(ctx, outcome, duration)
	for _, hook := range executor.hooks {
		hook(ctx, outcome)
	}
	if finalize != nil {
		finalize(ctx, outcome)
	}
}
