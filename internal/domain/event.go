package domain

import "time"

// Event topics published during a run.
const (
	RunStarted   = "run.started"
	RunCompleted = "run.completed"
	RunFailed    = "run.failed"

	TaskSetup     = "task.setup"
	TaskRunning   = "task.run"
	TaskCompleted = "task.completed"
	TaskFailed    = "task.failed"
	TaskSkipped   = "task.skipped"
	TaskTeardown  = "task.teardown"
)

// Event represents a lifecycle notification passed to a Notifier.
type Event struct {
	Topic     string        // Type or category of the event (e.g., "task.setup", "run.completed")
	RunID     string        // Run the event belongs to
	Task      string        // Task name, empty for run-level events
	State     TaskState     // Task state when the event was emitted
	Err       error         // Failure or skip reason, if any
	Duration  time.Duration // Run duration of the task or of the whole run
	Data      interface{}   // Optional payload
	Timestamp time.Time     // When the event occurred
}

// NewEvent creates a new event.
func NewEvent(topic string, data interface{}) Event {
	return Event{
		Topic:     topic,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// Notifier receives lifecycle events. Implementations must be safe for
// concurrent use since units of work publish from their own goroutines.
type Notifier interface {
	Publish(event Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

func (f NotifierFunc) Publish(event Event) { f(event) }
