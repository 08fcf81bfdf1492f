package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// unit is the schedulable work for one task in one run. Its fields are
// written only by the goroutine running it and read by others after done
// is closed.
type unit struct {
	rs   *runState
	task *Task
	deps []*unit
	done chan struct{}

	ok       bool  // setup and run succeeded
	err      error // failure, reported in the run error
	skip     error // reason the task never started
	duration time.Duration
}

func newUnit(rs *runState, t *Task) *unit {
	return &unit{rs: rs, task: t, done: make(chan struct{})}
}

// Run waits for every direct dependency, then sets up and runs the task.
// It always returns nil: outcomes are recorded on the unit.
func (u *unit) Run() error {
	defer close(u.done)

	ctx := u.rs.ctx
	for _, dep := range u.deps {
		select {
		case <-dep.done:
		case <-ctx.Done():
			u.skipped(ctx.Err())
			return nil
		}
		if !dep.ok {
			u.skipped(fmt.Errorf("dependency %q did not complete", dep.task.Name))
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		u.skipped(err)
		return nil
	}

	u.execute(ctx)
	return nil
}

func (u *unit) execute(ctx context.Context) {
	t := u.task
	start := time.Now()
	phase := PhaseSetup

	u.rs.publish(Event{Topic: TaskSetup, Task: t.Name, State: InProgress})
	var err error
	var c panics.Catcher
	c.Try(func() {
		if err = t.Setup(ctx); err != nil {
			return
		}
		phase = PhaseRun
		u.rs.publish(Event{Topic: TaskRunning, Task: t.Name, State: InProgress})
		err = t.Run(ctx)
	})
	if r := c.Recovered(); r != nil {
		err = r.AsError()
	}
	u.duration = time.Since(start)

	if err != nil {
		t.State = Failed
		u.err = &TaskExecutionError{Task: t.Name, Phase: phase, Cause: err}
		u.rs.logger.Error().Err(err).Str("task", t.Name).Str("phase", string(phase)).Msg("Task failed")
		u.rs.publish(Event{Topic: TaskFailed, Task: t.Name, State: Failed, Err: u.err, Duration: u.duration})
		u.rs.abort()
		return
	}
	u.ok = true
	u.rs.logger.Debug().Str("task", t.Name).Dur("duration", u.duration).Msg("Task ran")
}

func (u *unit) skipped(reason error) {
	u.skip = reason
	u.rs.logger.Debug().Str("task", u.task.Name).AnErr("reason", reason).Msg("Task skipped")
	u.rs.publish(Event{Topic: TaskSkipped, Task: u.task.Name, State: u.task.State, Err: reason})
}

// reject records that the executor refused the unit. It must only be
// called when Run will never be invoked.
func (u *unit) reject(err error) {
	u.err = err
	u.skipped(err)
	close(u.done)
}

// teardown runs after the barrier, on the orchestrator goroutine.
func (u *unit) teardown(ctx context.Context) error {
	t := u.task
	u.rs.publish(Event{Topic: TaskTeardown, Task: t.Name, State: t.State})

	var err error
	var c panics.Catcher
	c.Try(func() { err = t.Teardown(ctx) })
	if r := c.Recovered(); r != nil {
		err = r.AsError()
	}
	if err != nil {
		t.State = Failed
		u.err = &TaskExecutionError{Task: t.Name, Phase: PhaseTeardown, Cause: err}
		u.rs.logger.Error().Err(err).Str("task", t.Name).Msg("Teardown failed")
		u.rs.publish(Event{Topic: TaskFailed, Task: t.Name, State: Failed, Err: u.err, Duration: u.duration})
		return u.err
	}
	u.rs.publish(Event{Topic: TaskCompleted, Task: t.Name, State: Completed, Duration: u.duration, Data: t.Result})
	return nil
}

func (u *unit) result() TaskResult {
	res := TaskResult{
		Name:     u.task.Name,
		State:    u.task.State,
		Skipped:  u.skip != nil,
		Err:      u.err,
		Value:    u.task.Result,
		Duration: u.duration,
	}
	if res.Err == nil {
		res.Err = u.skip
	}
	return res
}
