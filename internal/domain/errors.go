package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInvalidTask           = errors.New("invalid task")
	ErrDuplicateTask         = errors.New("duplicate task")
	ErrInvalidDependencyList = errors.New("invalid dependency list")
	ErrUndefinedDependency   = errors.New("undefined dependency")
	ErrCyclicDependency      = errors.New("cyclic dependency")
	ErrDanglingDependency    = errors.New("dangling dependency")
	ErrTaskExecution         = errors.New("task execution failure")
)

// ValidationError wraps deterministic validation failures of a task set.
type ValidationError struct {
	Kind error
	Task string
	Msg  string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Kind }

func invalidf(kind error, task string, format string, args ...any) error {
	return &ValidationError{Kind: kind, Task: task, Msg: fmt.Sprintf(format, args...)}
}

// CycleError reports one cycle of the dependency relation. Path starts and
// ends with the same task name.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "Circular references detected: " + strings.Join(e.Path, " -> ")
}

func (e *CycleError) Unwrap() error { return ErrCyclicDependency }

// DanglingDependencyError reports a dependency object that is not part of
// the task set handed to the orchestrator.
type DanglingDependencyError struct {
	Task       string
	Dependency string
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("Invalid dependency for task %s: %s", e.Task, e.Dependency)
}

func (e *DanglingDependencyError) Unwrap() error { return ErrDanglingDependency }

// Phase names the lifecycle hook a task was in when it failed.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseRun      Phase = "run"
	PhaseTeardown Phase = "teardown"
)

// TaskExecutionError is a failure raised by a task body. It matches both
// ErrTaskExecution and the underlying cause.
type TaskExecutionError struct {
	Task  string
	Phase Phase
	Cause error
}

func (e *TaskExecutionError) Error() string {
	return fmt.Sprintf("task %q failed during %s: %v", e.Task, e.Phase, e.Cause)
}

func (e *TaskExecutionError) Unwrap() []error {
	return []error{ErrTaskExecution, e.Cause}
}
