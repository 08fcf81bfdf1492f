package domain

import (
	"maps"
	"slices"
)

// Description is the raw declaration of a task as read from a task file:
// dependencies are still names, not resolved tasks.
type Description struct {
	Name         string
	Dependencies []string
	Kind         string
	Attributes   map[string]any
}

// BodyResolver builds the body for a described task.
type BodyResolver func(d Description) (Body, error)

// ValidateDescriptions checks a proposed task set before any Task is built.
//
// It stops at the first problem, in this order:
//   - a task without a name
//   - a name used twice
//   - a name repeated inside one dependency list
//   - a dependency naming no task of the set
//   - a cycle, reported with its path
//
// The input is never modified.
func ValidateDescriptions(descs []Description) error {
	names := make(map[string]struct{}, len(descs))
	for i, d := range descs {
		if d.Name == "" {
			return invalidf(ErrInvalidTask, "", "Invalid task: missing 'name' field (entry %d)", i)
		}
		if _, exists := names[d.Name]; exists {
			return invalidf(ErrDuplicateTask, d.Name, "Duplicate task name: %s", d.Name)
		}
		seen := make(map[string]struct{}, len(d.Dependencies))
		for _, dep := range d.Dependencies {
			if _, dup := seen[dep]; dup {
				return invalidf(ErrInvalidDependencyList, d.Name, "Duplicate dependencies found for task '%s': %s", d.Name, dep)
			}
			seen[dep] = struct{}{}
		}
		names[d.Name] = struct{}{}
	}

	for _, d := range descs {
		for _, dep := range d.Dependencies {
			if _, ok := names[dep]; !ok {
				return invalidf(ErrUndefinedDependency, d.Name,
					"Invalid dependencies: some tasks are referenced but not defined (task '%s' references '%s')", d.Name, dep)
			}
		}
	}

	if path := findCycle(descs); path != nil {
		return &CycleError{Path: path}
	}
	return nil
}

type pathFrame struct {
	name string
	path []string
}

// findCycle runs an iterative depth-first search from every task, carrying
// the path used to reach each node. Reaching a node that is already on the
// carried path closes a cycle. Nodes expanded by an earlier search are not
// expanded again: any cycle through them would already have been reported.
//
// The returned path is trimmed to the cycle, so it starts and ends with the
// same name.
func findCycle(descs []Description) []string {
	graph := make(map[string][]string, len(descs))
	for _, d := range descs {
		graph[d.Name] = d.Dependencies
	}

	visited := make(map[string]bool, len(descs))
	for _, d := range descs {
		if visited[d.Name] {
			continue
		}
		stack := []pathFrame{{name: d.Name}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if i := slices.Index(f.path, f.name); i >= 0 {
				cycle := slices.Clone(f.path[i:])
				return append(cycle, f.name)
			}
			if visited[f.name] {
				continue
			}
			visited[f.name] = true

			path := append(slices.Clone(f.path), f.name)
			deps := graph[f.name]
			// Push in reverse so the first dependency is explored first.
			for j := len(deps) - 1; j >= 0; j-- {
				stack = append(stack, pathFrame{name: deps[j], path: path})
			}
		}
	}
	return nil
}

// BuildTasks validates descs and wires them into tasks whose dependencies
// are resolved to task references. resolve may be nil, in which case every
// task gets the no-op body.
func BuildTasks(descs []Description, resolve BodyResolver) ([]*Task, error) {
	if err := ValidateDescriptions(descs); err != nil {
		return nil, err
	}

	tasks := make([]*Task, len(descs))
	byName := make(map[string]*Task, len(descs))
	for i, d := range descs {
		t := NewTask(d.Name)
		t.Kind = d.Kind
		if d.Attributes != nil {
			t.Attributes = maps.Clone(d.Attributes)
		}
		if resolve != nil {
			body, err := resolve(d)
			if err != nil {
				return nil, invalidf(ErrInvalidTask, d.Name, "task '%s': %v", d.Name, err)
			}
			t.Body = body
		}
		tasks[i] = t
		byName[d.Name] = t
	}

	for i, d := range descs {
		for _, dep := range d.Dependencies {
			tasks[i].Dependencies = append(tasks[i].Dependencies, byName[dep])
		}
	}
	return tasks, nil
}
