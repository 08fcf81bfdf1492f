package domain_test

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// recorder collects lifecycle calls from concurrently running bodies.
type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

func (r *recorder) index(s string) int {
	return slices.Index(r.list(), s)
}

// withPrefix returns the task names of entries starting with prefix, in order.
func (r *recorder) withPrefix(prefix string) []string {
	var out []string
	for _, e := range r.list() {
		if len(e) > len(prefix) && e[:len(prefix)] == prefix {
			out = append(out, e[len(prefix):])
		}
	}
	return out
}

// traceBody records each hook and can be told to fail, panic or sleep.
type traceBody struct {
	rec          *recorder
	delay        time.Duration
	value        any
	failSetup    error
	failRun      error
	failTeardown error
	panicRun     any
}

func (b *traceBody) Setup(_ context.Context, t *domain.Task) error {
	b.rec.add("setup " + t.Name)
	return b.failSetup
}

func (b *traceBody) Run(ctx context.Context, t *domain.Task) (any, error) {
	b.rec.add("run " + t.Name)
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.panicRun != nil {
		panic(b.panicRun)
	}
	b.rec.add("ran " + t.Name)
	return b.value, b.failRun
}

func (b *traceBody) Teardown(_ context.Context, t *domain.Task) error {
	b.rec.add("teardown " + t.Name)
	return b.failTeardown
}

func traced(rec *recorder, name string, deps ...*domain.Task) *domain.Task {
	t := domain.NewTask(name, deps...)
	t.Body = &traceBody{rec: rec}
	return t
}

func body(t *domain.Task) *traceBody {
	return t.Body.(*traceBody)
}

// eventLog is a Notifier keeping every event.
type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) Publish(e domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.events)
}

func (l *eventLog) topicsFor(task string) []string {
	var out []string
	for _, e := range l.all() {
		if e.Task == task {
			out = append(out, e.Topic)
		}
	}
	return out
}

func names(tasks []*domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name
	}
	return out
}

func depNames(t *domain.Task) []string {
	return names(t.Dependencies)
}

// randomDAG builds n tasks where each task depends on a random subset of
// the tasks created before it, then shuffles the returned slice.
func randomDAG(rng *rand.Rand, rec *recorder, n int) []*domain.Task {
	tasks := make([]*domain.Task, n)
	for i := range tasks {
		var deps []*domain.Task
		for j := 0; j < i; j++ {
			if rng.IntN(4) == 0 {
				deps = append(deps, tasks[j])
			}
		}
		tasks[i] = traced(rec, "t"+string(rune('a'+i%26))+string(rune('0'+i/26)), deps...)
	}
	rng.Shuffle(len(tasks), func(i, j int) { tasks[i], tasks[j] = tasks[j], tasks[i] })
	return tasks
}
