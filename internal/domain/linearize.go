package domain

type visitMark int

const (
	unvisited visitMark = iota
	active
	finished
)

type orderFrame struct {
	task *Task
	next int // index of the next dependency to visit
}

// Linearize returns a topological order of the DAG: every task, Root
// included, appears once and after all of its dependencies.
//
// The order is a depth-first post-order started from each task in the
// caller's order, visiting dependencies in list order. The traversal uses
// an explicit stack; a dependency found on the active stack means the
// tasks bypassed validation, and a CycleError is returned.
func (d *DAG) Linearize() ([]*Task, error) {
	marks := make(map[*Task]visitMark, d.Len())
	order := make([]*Task, 0, d.Len())

	for _, start := range d.Tasks {
		if marks[start] != unvisited {
			continue
		}
		marks[start] = active
		stack := []orderFrame{{task: start}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := d.deps[top.task]
			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++
				switch marks[dep] {
				case unvisited:
					marks[dep] = active
					stack = append(stack, orderFrame{task: dep})
				case active:
					return nil, &CycleError{Path: stackCycle(stack, dep)}
				}
				continue
			}

			marks[top.task] = finished
			order = append(order, top.task)
			stack = stack[:len(stack)-1]
		}
	}
	return order, nil
}

func stackCycle(stack []orderFrame, repeated *Task) []string {
	var path []string
	for _, f := range stack {
		if f.task == repeated || path != nil {
			path = append(path, f.task.Name)
		}
	}
	return append(path, repeated.Name)
}
