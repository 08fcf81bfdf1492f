package domain

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// TaskState defines the current state of a task.
type TaskState int

const (
	// Pending tasks are waiting to be scheduled or executed.
	Pending TaskState = 0
	// InProgress tasks have been set up and are running their body.
	InProgress TaskState = 1
	// Completed tasks have been torn down after a successful run.
	Completed TaskState = 2
	// Failed tasks encountered an error during setup, run or teardown.
	Failed TaskState = 4
)

func (s TaskState) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case InProgress:
		return "IN_PROGRESS"
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	default:
		return "TaskState(" + strconv.Itoa(int(s)) + ")"
	}
}

// MarshalText renders the state by name so reports stay readable.
func (s TaskState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

//go:generate mockgen -source=task.go -destination=mocks/task_mock.go -package=mocks

// Runnable defines the interface for jobs that can be executed by the worker pool.
type Runnable interface {
	Run() error
}

// Body is the behavior of a task. Each hook is called at most once per run.
type Body interface {
	Setup(ctx context.Context, t *Task) error
	Run(ctx context.Context, t *Task) (any, error)
	Teardown(ctx context.Context, t *Task) error
}

// NopBody implements Body with no side effects. Variants embed it and
// override only the hooks they need.
type NopBody struct{}

func (NopBody) Setup(context.Context, *Task) error      { return nil }
func (NopBody) Run(context.Context, *Task) (any, error) { return nil, nil }
func (NopBody) Teardown(context.Context, *Task) error   { return nil }

// Task represents a named unit of work and its dependencies.
type Task struct {
	Name         string         // Unique identifier for the task within its set
	Dependencies []*Task        // Tasks that must finish running before this one starts
	State        TaskState      // Current lifecycle state
	Kind         string         // Body variant the task was built from, informational
	Attributes   map[string]any // Payload read by the body
	Body         Body           // Behavior; nil behaves as NopBody

	// Result holds the value returned by the body's Run hook.
	Result any
}

// NewTask creates a pending task with the given dependencies.
func NewTask(name string, dependencies ...*Task) *Task {
	deps := make([]*Task, 0, len(dependencies))
	deps = append(deps, dependencies...)
	return &Task{
		Name:         name,
		Dependencies: deps,
		State:        Pending,
		Attributes:   make(map[string]any),
	}
}

func (t *Task) body() Body {
	if t.Body == nil {
		return NopBody{}
	}
	return t.Body
}

// Setup moves the task to InProgress and invokes the body's Setup hook.
func (t *Task) Setup(ctx context.Context) error {
	t.State = InProgress
	return t.body().Setup(ctx, t)
}

// Run invokes the body's Run hook and keeps its return value in Result.
func (t *Task) Run(ctx context.Context) error {
	out, err := t.body().Run(ctx, t)
	if err != nil {
		return err
	}
	t.Result = out
	return nil
}

// Teardown invokes the body's Teardown hook and marks the task Completed.
func (t *Task) Teardown(ctx context.Context) error {
	if err := t.body().Teardown(ctx, t); err != nil {
		return err
	}
	t.State = Completed
	return nil
}

// Attr returns the raw attribute stored under key.
func (t *Task) Attr(key string) (any, bool) {
	if t.Attributes == nil {
		return nil, false
	}
	v, ok := t.Attributes[key]
	return v, ok
}

// Float reads a numeric attribute. Integer and string encodings produced by
// the different task file formats are accepted.
func (t *Task) Float(key string) (float64, error) {
	v, ok := t.Attr(key)
	if !ok {
		return 0, fmt.Errorf("task %q: missing attribute %q", t.Name, key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("task %q: attribute %q: %w", t.Name, key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("task %q: attribute %q is %T, not a number", t.Name, key, v)
	}
}

// Text reads a string attribute, returning def when it is absent.
func (t *Task) Text(key, def string) (string, error) {
	v, ok := t.Attr(key)
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("task %q: attribute %q is %T, not a string", t.Name, key, v)
	}
	return s, nil
}

// Duration reads a duration attribute written either as a Go duration
// string ("250ms") or as a number of seconds.
func (t *Task) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := t.Attr(key)
	if !ok || v == nil {
		return def, nil
	}
	if s, ok := v.(string); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("task %q: attribute %q: %w", t.Name, key, err)
		}
		return d, nil
	}
	secs, err := t.Float(key)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}
