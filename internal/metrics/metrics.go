// Package metrics exposes run and task metrics as Prometheus collectors fed
// from lifecycle events.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

const (
	namespace = "maestro"
	subsystem = "runner"
)

// Collector implements domain.Notifier and records every event it receives.
type Collector struct {
	registry *prometheus.Registry

	// RunsTotal counts finished runs by result.
	RunsTotal *prometheus.CounterVec
	// RunDuration records the wall time of runs.
	RunDuration prometheus.Histogram
	// TasksTotal counts task outcomes.
	TasksTotal *prometheus.CounterVec
	// TaskDuration records setup and run time of finished tasks.
	TaskDuration *prometheus.HistogramVec
	// TasksInflight is the number of tasks in setup or run.
	TasksInflight prometheus.Gauge
}

// NewCollector creates the collectors and registers them on a private
// registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total number of finished runs.",
			}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "run_duration_seconds",
				Help:      "Bucketed histogram of run wall time (s).",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 20), // 1ms~524s
			}),
		TasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_total",
				Help:      "Total number of task outcomes by result.",
			}, []string{"result"}),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "task_duration_seconds",
				Help:      "Bucketed histogram of task setup and run time (s).",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 20), // 0.1ms~52s
			}, []string{"result"}),
		TasksInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_inflight",
				Help:      "Number of tasks currently in setup or run.",
			}),
	}
	c.registry.MustRegister(c.RunsTotal, c.RunDuration, c.TasksTotal, c.TaskDuration, c.TasksInflight)
	return c
}

// Registry returns the registry holding the collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Publish records the event.
func (c *Collector) Publish(e domain.Event) {
	switch e.Topic {
	case domain.RunCompleted:
		c.RunsTotal.WithLabelValues("completed").Inc()
		c.RunDuration.Observe(e.Duration.Seconds())
	case domain.RunFailed:
		c.RunsTotal.WithLabelValues("failed").Inc()
		c.RunDuration.Observe(e.Duration.Seconds())
	case domain.TaskSetup:
		c.TasksInflight.Inc()
	case domain.TaskTeardown:
		// Only tasks whose run succeeded are torn down.
		c.TasksInflight.Dec()
	case domain.TaskCompleted:
		c.TasksTotal.WithLabelValues("completed").Inc()
		c.TaskDuration.WithLabelValues("completed").Observe(e.Duration.Seconds())
	case domain.TaskFailed:
		var te *domain.TaskExecutionError
		if !errors.As(e.Err, &te) || te.Phase != domain.PhaseTeardown {
			c.TasksInflight.Dec()
		}
		c.TasksTotal.WithLabelValues("failed").Inc()
		c.TaskDuration.WithLabelValues("failed").Observe(e.Duration.Seconds())
	case domain.TaskSkipped:
		c.TasksTotal.WithLabelValues("skipped").Inc()
	}
}

// WriteTextfile writes the current values in the text exposition format,
// for the node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
