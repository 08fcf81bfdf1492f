package domain

import (
	"strconv"
)

// RootName is the name given to the synthetic entry task of every DAG.
const RootName = "Root"

// Edge is a dependency edge: From must finish before To starts.
type Edge struct {
	From string
	To   string
}

// DAG is the working copy of a task set used for one run. It borrows the
// caller's tasks but keeps its own dependency lists, so injecting Root
// never mutates Task.Dependencies.
type DAG struct {
	ID    string  // Identifier of the run this DAG was built for
	Root  *Task   // Synthetic entry task, dependency of every task that had none
	Tasks []*Task // Caller's tasks in their original order

	deps map[*Task][]*Task // Working dependency lists with Root injected
}

// NewDAG checks the object-level integrity of tasks and builds the working
// graph. It fails when a task has no name, when two entries share a name or
// a pointer, or when a dependency is not itself a member of tasks.
func NewDAG(id string, tasks []*Task) (*DAG, error) {
	members := make(map[*Task]struct{}, len(tasks))
	names := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		if t == nil || t.Name == "" {
			return nil, invalidf(ErrInvalidTask, "", "Invalid task: missing 'name' field (entry %d)", i)
		}
		if _, exists := names[t.Name]; exists {
			return nil, invalidf(ErrDuplicateTask, t.Name, "Duplicate task name: %s", t.Name)
		}
		names[t.Name] = struct{}{}
		members[t] = struct{}{}
	}

	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if dep == nil {
				return nil, &DanglingDependencyError{Task: t.Name, Dependency: "<nil>"}
			}
			if _, ok := members[dep]; !ok {
				return nil, &DanglingDependencyError{Task: t.Name, Dependency: dep.Name}
			}
		}
	}

	d := &DAG{
		ID:    id,
		Root:  NewTask(rootName(names)),
		Tasks: tasks,
		deps:  make(map[*Task][]*Task, len(tasks)+1),
	}
	d.deps[d.Root] = nil
	d.injectRoot()
	return d, nil
}

// rootName picks RootName unless a caller task already uses it.
func rootName(taken map[string]struct{}) string {
	name := RootName
	for i := 1; ; i++ {
		if _, exists := taken[name]; !exists {
			return name
		}
		name = RootName + "." + strconv.Itoa(i)
	}
}

// injectRoot copies every dependency list and makes Root the sole
// dependency of tasks that had none.
func (d *DAG) injectRoot() {
	for _, t := range d.Tasks {
		if len(t.Dependencies) == 0 {
			d.deps[t] = []*Task{d.Root}
			continue
		}
		deps := make([]*Task, len(t.Dependencies))
		copy(deps, t.Dependencies)
		d.deps[t] = deps
	}
}

// Dependencies returns the working dependency list of t.
func (d *DAG) Dependencies(t *Task) []*Task {
	return d.deps[t]
}

// Len is the number of tasks in the DAG, Root included.
func (d *DAG) Len() int {
	return len(d.Tasks) + 1
}

// Edges lists every dependency edge, Root edges included, in task order.
func (d *DAG) Edges() []Edge {
	edges := make([]Edge, 0, len(d.Tasks))
	for _, t := range d.Tasks {
		for _, dep := range d.deps[t] {
			edges = append(edges, Edge{From: dep.Name, To: t.Name})
		}
	}
	return edges
}
