// Package logging builds the zerolog loggers used across the runner and the
// lifecycle printer that echoes task transitions.
package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// New builds a logger writing to w. format is "json" or "console".
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch format {
	case "json":
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// LifecycleTimeFormat is the timestamp layout of lifecycle lines.
const LifecycleTimeFormat = "15:04:05.000000"

// LifecyclePrinter writes one line per task transition, such as
//
//	[12:04:05.123456] Setting up task: A
//
// It implements domain.Notifier.
type LifecyclePrinter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLifecyclePrinter creates a printer writing to w.
func NewLifecyclePrinter(w io.Writer) *LifecyclePrinter {
	return &LifecyclePrinter{w: w}
}

var lifecycleVerbs = map[string]string{
	domain.TaskSetup:    "Setting up task",
	domain.TaskRunning:  "Running task",
	domain.TaskTeardown: "Tearing down task",
	domain.TaskFailed:   "Task failed",
	domain.TaskSkipped:  "Skipping task",
}

// Publish prints task events and ignores the others.
func (p *LifecyclePrinter) Publish(e domain.Event) {
	verb, ok := lifecycleVerbs[e.Topic]
	if !ok {
		return
	}
	line := fmt.Sprintf("[%s] %s: %s", e.Timestamp.Format(LifecycleTimeFormat), verb, e.Task)
	if e.Err != nil {
		line += " (" + e.Err.Error() + ")"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, line)
}
