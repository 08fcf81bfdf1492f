package domain

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Executor runs units of work. Add may block while the executor is at
// capacity; it returns an error when the job can never run.
type Executor interface {
	Add(job Runnable) error
}

// Orchestrator executes a task set once per Run: every task after all of
// its dependencies, independent tasks concurrently, then a teardown pass in
// reverse execution order.
type Orchestrator struct {
	dag   *DAG
	order []*Task

	executor   Executor
	maxWorkers int
	notifiers  []Notifier
	logger     zerolog.Logger
	failFast   bool
	timeout    time.Duration
	runID      string

	mu sync.Mutex // serialises Run
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExecutor runs units on e instead of a private goroutine pool.
func WithExecutor(e Executor) Option {
	return func(o *Orchestrator) { o.executor = e }
}

// WithMaxWorkers bounds the private goroutine pool used when no executor is set.
func WithMaxWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxWorkers = n
		}
	}
}

// WithNotifier adds a lifecycle event sink. It may be given several times.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifiers = append(o.notifiers, n)
		}
	}
}

// WithLogger sets the logger used for run diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithFailFast cancels the run on the first task failure. Units that have
// not started yet are skipped.
func WithFailFast() Option {
	return func(o *Orchestrator) { o.failFast = true }
}

// WithTimeout bounds the execution phase of each run. Teardown is not
// subject to the timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithRunID fixes the run identifier instead of generating one per run.
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}

// NewOrchestrator validates the object graph of tasks, injects the Root
// task into a working copy of it and computes the execution order. tasks
// are borrowed: their dependency lists are never modified.
func NewOrchestrator(tasks []*Task, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		maxWorkers: runtime.GOMAXPROCS(0),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	dag, err := NewDAG(o.runID, tasks)
	if err != nil {
		return nil, err
	}
	order, err := dag.Linearize()
	if err != nil {
		return nil, err
	}
	o.dag = dag
	o.order = order
	return o, nil
}

// DAG returns the working graph, Root included.
func (o *Orchestrator) DAG() *DAG { return o.dag }

// Order returns a copy of the execution order, Root first.
func (o *Orchestrator) Order() []*Task {
	out := make([]*Task, len(o.order))
	copy(out, o.order)
	return out
}

// TaskResult is the outcome of a single task in a run.
type TaskResult struct {
	Name     string
	State    TaskState
	Skipped  bool          // Never started: a dependency failed or the run was cancelled
	Err      error         // Failure or skip reason
	Value    any           // Value returned by the body's Run hook
	Duration time.Duration // Time spent in setup and run
}

// RunReport summarises one run.
type RunReport struct {
	RunID    string
	Order    []string              // Execution order, Root first
	Teardown []string              // Tasks torn down, in teardown order
	Results  map[string]TaskResult // Keyed by task name
	Failed   bool
	Started  time.Time
	Finished time.Time
}

// Skipped lists the tasks that never started, in execution order.
func (r *RunReport) Skipped() []string {
	var out []string
	for _, name := range r.Order {
		if r.Results[name].Skipped {
			out = append(out, name)
		}
	}
	return out
}

// runState is shared by the units of one run.
type runState struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	aborted atomic.Bool // set when fail-fast cancelled the run

	failFast  bool
	notifiers []Notifier
	logger    zerolog.Logger
}

func (rs *runState) publish(e Event) {
	e.RunID = rs.id
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	for _, n := range rs.notifiers {
		n.Publish(e)
	}
}

func (rs *runState) abort() {
	if rs.failFast && rs.aborted.CompareAndSwap(false, true) {
		rs.logger.Warn().Str("run", rs.id).Msg("Fail-fast: cancelling remaining tasks")
		rs.cancel()
	}
}

// Run executes every task once. It returns the run report and, when any
// task failed or the context ended the run early, the joined errors in
// execution order. The report is always non-nil.
//
// Task states are reset to Pending at the start of each run, so the same
// orchestrator can be run again.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	runID := o.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if o.timeout > 0 {
		var cancelTimeout context.CancelFunc
		execCtx, cancelTimeout = context.WithTimeout(execCtx, o.timeout)
		defer cancelTimeout()
	}

	rs := &runState{
		id:        runID,
		ctx:       execCtx,
		cancel:    cancel,
		failFast:  o.failFast,
		notifiers: o.notifiers,
		logger:    o.logger,
	}

	report := &RunReport{
		RunID:   runID,
		Order:   make([]string, len(o.order)),
		Results: make(map[string]TaskResult, len(o.order)),
		Started: time.Now(),
	}
	for i, t := range o.order {
		t.State = Pending
		t.Result = nil
		report.Order[i] = t.Name
	}

	o.logger.Info().Str("run", runID).Int("tasks", len(o.order)).Msg("Run started")
	rs.publish(Event{Topic: RunStarted, Data: report.Order})

	units := o.submit(rs)

	// Barrier: every unit closes its done channel exactly once.
	for _, u := range units {
		<-u.done
	}

	var errs []error
	for _, u := range units {
		if u.err != nil {
			errs = append(errs, u.err)
		}
	}
	if err := execCtx.Err(); err != nil && !rs.aborted.Load() {
		errs = append(errs, err)
	}

	// Teardown runs even when the run context is gone.
	teardownCtx := context.WithoutCancel(ctx)
	for i := len(units) - 1; i >= 0; i-- {
		u := units[i]
		if !u.ok {
			continue
		}
		report.Teardown = append(report.Teardown, u.task.Name)
		if err := u.teardown(teardownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	for _, u := range units {
		report.Results[u.task.Name] = u.result()
	}
	report.Finished = time.Now()
	report.Failed = len(errs) > 0

	runErr := errors.Join(errs...)
	elapsed := report.Finished.Sub(report.Started)
	if runErr != nil {
		o.logger.Error().Err(runErr).Str("run", runID).Dur("elapsed", elapsed).Msg("Run failed")
		rs.publish(Event{Topic: RunFailed, Err: runErr, Duration: elapsed, Data: report})
	} else {
		o.logger.Info().Str("run", runID).Dur("elapsed", elapsed).Msg("Run completed")
		rs.publish(Event{Topic: RunCompleted, Duration: elapsed, Data: report})
	}
	return report, runErr
}

// submit creates one unit per task and hands them to the executor in
// execution order. Since every unit is queued after all of its
// dependencies, the oldest unfinished unit can always make progress, even
// on an executor with a single worker.
func (o *Orchestrator) submit(rs *runState) []*unit {
	units := make([]*unit, len(o.order))
	byTask := make(map[*Task]*unit, len(o.order))
	for i, t := range o.order {
		u := newUnit(rs, t)
		for _, dep := range o.dag.Dependencies(t) {
			u.deps = append(u.deps, byTask[dep])
		}
		byTask[t] = u
		units[i] = u
	}

	executor := o.executor
	var private *pool.Pool
	if executor == nil {
		private = pool.New().WithMaxGoroutines(o.maxWorkers)
		executor = poolExecutor{p: private}
	}

	for _, u := range units {
		if err := executor.Add(u); err != nil {
			u.reject(fmt.Errorf("submit task %q: %w", u.task.Name, err))
		}
	}
	if private != nil {
		private.Wait()
	}
	return units
}

// poolExecutor adapts a conc pool to the Executor interface. Go blocks
// until a goroutine is free.
type poolExecutor struct {
	p *pool.Pool
}

func (e poolExecutor) Add(job Runnable) error {
	e.p.Go(func() { _ = job.Run() })
	return nil
}
