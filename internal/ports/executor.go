package ports

import "github.com/ZanzyTHEbar/maestro/internal/domain"

// TaskExecutor defines the port for submitting units of work to an execution engine (like a worker pool).
// This decouples the orchestration logic from the specific implementation of task execution.
// Every TaskExecutor satisfies domain.Executor.
type TaskExecutor interface {
	// Add submits a runnable job for execution.
	// Implementations may block if internal capacity is reached, and return an
	// error when the job will never run (e.g., the executor was stopped).
	Add(job domain.Runnable) error

	// TryAdd attempts to submit a runnable job for execution without blocking.
	// Returns true if the job was accepted, false otherwise (e.g., queue full, pool stopped).
	TryAdd(job domain.Runnable) bool

	// Start initializes the executor (e.g., starts worker pool monitor).
	Start() error

	// Stop gracefully shuts down the executor, waiting for active jobs to complete.
	Stop()
}

// Notifier is the port for lifecycle event sinks: the event bus, metrics
// collectors, loggers and progress displays.
type Notifier = domain.Notifier

var _ domain.Executor = (TaskExecutor)(nil)
