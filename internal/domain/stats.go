package domain

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Stats is a snapshot of a TaskStatsCollector.
type Stats struct {
	Completed    int
	Failed       int
	Skipped      int
	Running      int
	AvgLatency   time.Duration
	TotalLatency time.Duration
	Uptime       time.Duration
}

// TaskStatsCollector collects statistics about task execution from
// lifecycle events. It implements Notifier.
type TaskStatsCollector struct {
	completed    int
	failed       int
	skipped      int
	running      int
	totalLatency time.Duration
	mu           sync.RWMutex
	startTime    time.Time
}

// NewTaskStatsCollector creates a new TaskStatsCollector
func NewTaskStatsCollector() *TaskStatsCollector {
	return &TaskStatsCollector{
		startTime: time.Now(),
	}
}

// Publish updates the counters from a task event.
func (tsc *TaskStatsCollector) Publish(event Event) {
	tsc.mu.Lock()
	defer tsc.mu.Unlock()

	switch event.Topic {
	case TaskSetup:
		tsc.running++
	case TaskCompleted:
		tsc.completed++
		tsc.totalLatency += event.Duration
	case TaskFailed:
		// A teardown failure follows a successful run: the task is no longer running.
		tsc.failed++
		if event.Err != nil && isPhase(event.Err, PhaseTeardown) {
			return
		}
		tsc.running--
	case TaskSkipped:
		tsc.skipped++
	case TaskTeardown:
		tsc.running--
	}
}

func isPhase(err error, phase Phase) bool {
	var te *TaskExecutionError
	return errors.As(err, &te) && te.Phase == phase
}

// GetStats returns the current statistics
func (tsc *TaskStatsCollector) GetStats() Stats {
	tsc.mu.RLock()
	defer tsc.mu.RUnlock()

	avgLatency := time.Duration(0)
	if tsc.completed > 0 {
		avgLatency = tsc.totalLatency / time.Duration(tsc.completed)
	}

	return Stats{
		Completed:    tsc.completed,
		Failed:       tsc.failed,
		Skipped:      tsc.skipped,
		Running:      tsc.running,
		AvgLatency:   avgLatency,
		TotalLatency: tsc.totalLatency,
		Uptime:       time.Since(tsc.startTime),
	}
}

// String formats the statistics on one line.
func (s Stats) String() string {
	return fmt.Sprintf("Task Stats - Completed: %d, Failed: %d, Skipped: %d, Running: %d, Avg Latency: %v",
		s.Completed, s.Failed, s.Skipped, s.Running, s.AvgLatency)
}

// TaskProgressBar renders run progress on a terminal line. It implements
// Notifier and redraws on every finished task.
type TaskProgressBar struct {
	w         io.Writer
	total     int
	completed int
	failed    int
	mu        sync.Mutex
}

// NewTaskProgressBar creates a new TaskProgressBar
func NewTaskProgressBar(w io.Writer, totalTasks int) *TaskProgressBar {
	return &TaskProgressBar{
		w:     w,
		total: totalTasks,
	}
}

// Publish counts finished tasks and redraws the bar.
func (tpb *TaskProgressBar) Publish(event Event) {
	tpb.mu.Lock()
	defer tpb.mu.Unlock()

	switch event.Topic {
	case TaskCompleted:
		tpb.completed++
	case TaskFailed, TaskSkipped:
		tpb.failed++
	default:
		return
	}
	tpb.print()
}

// print assumes mu is held.
func (tpb *TaskProgressBar) print() {
	if tpb.total <= 0 {
		return
	}
	done := tpb.completed + tpb.failed
	progress := float64(done) / float64(tpb.total) * 100

	width := 50
	completed := width * tpb.completed / tpb.total
	failed := width * tpb.failed / tpb.total
	remaining := max(width-completed-failed, 0)

	bar := strings.Repeat("█", completed) + strings.Repeat("▒", failed) + strings.Repeat("░", remaining)

	fmt.Fprintf(tpb.w, "\rProgress: [%s] %.1f%% (%d/%d completed, %d failed)",
		bar, progress, tpb.completed, tpb.total, tpb.failed)

	if done >= tpb.total {
		fmt.Fprintln(tpb.w)
	}
}
