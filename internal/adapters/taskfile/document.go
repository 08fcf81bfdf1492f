package taskfile

import (
	"fmt"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// Reserved task keys. Every other key of a task entry becomes an attribute.
const (
	keyName         = "name"
	keyDependencies = "dependencies"
	keyKind         = "kind"
	keyAttributes   = "attributes"
)

// fromDocument converts a generic decoded document into descriptions. The
// document is either a list of task objects or an object holding that
// list under listKey.
func fromDocument(doc any, listKey string) ([]domain.Description, error) {
	var entries []any
	switch d := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		entries = d
	case []map[string]any:
		entries = make([]any, len(d))
		for i, m := range d {
			entries[i] = m
		}
	case map[string]any:
		list, ok := d[listKey]
		if !ok {
			return nil, fmt.Errorf("task document has no %q list", listKey)
		}
		return fromDocument(list, listKey)
	default:
		return nil, fmt.Errorf("task document must be a list of tasks, got %T", doc)
	}

	descs := make([]domain.Description, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, &domain.ValidationError{
				Kind: domain.ErrInvalidTask,
				Msg:  fmt.Sprintf("Invalid task: entry %d is %T, not an object", i, entry),
			}
		}
		desc, err := fromEntry(i, m, seen)
		if err != nil {
			return nil, err
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// fromEntry checks one entry in the order the validator would, so the
// malformed dependency list of a later task never masks an earlier
// naming error.
func fromEntry(i int, m map[string]any, seen map[string]struct{}) (domain.Description, error) {
	var desc domain.Description

	switch name := m[keyName].(type) {
	case nil:
	case string:
		desc.Name = name
	default:
		return desc, &domain.ValidationError{
			Kind: domain.ErrInvalidTask,
			Msg:  fmt.Sprintf("Invalid task: 'name' of entry %d is %T, not a string", i, name),
		}
	}
	if desc.Name == "" {
		return desc, &domain.ValidationError{
			Kind: domain.ErrInvalidTask,
			Msg:  fmt.Sprintf("Invalid task: missing 'name' field (entry %d)", i),
		}
	}
	if _, dup := seen[desc.Name]; dup {
		return desc, &domain.ValidationError{
			Kind: domain.ErrDuplicateTask,
			Task: desc.Name,
			Msg:  "Duplicate task name: " + desc.Name,
		}
	}
	seen[desc.Name] = struct{}{}

	deps, err := dependencyList(desc.Name, m[keyDependencies])
	if err != nil {
		return desc, err
	}
	desc.Dependencies = deps

	if kind, ok := m[keyKind]; ok && kind != nil {
		s, ok := kind.(string)
		if !ok {
			return desc, fmt.Errorf("task '%s': 'kind' is %T, not a string", desc.Name, kind)
		}
		desc.Kind = s
	}

	attrs := make(map[string]any)
	if raw, ok := m[keyAttributes]; ok && raw != nil {
		nested, ok := raw.(map[string]any)
		if !ok {
			return desc, fmt.Errorf("task '%s': 'attributes' is %T, not an object", desc.Name, raw)
		}
		for k, v := range nested {
			attrs[k] = v
		}
	}
	for k, v := range m {
		switch k {
		case keyName, keyDependencies, keyKind, keyAttributes:
		default:
			attrs[k] = v
		}
	}
	if len(attrs) > 0 {
		desc.Attributes = attrs
	}
	return desc, nil
}

func dependencyList(task string, raw any) ([]string, error) {
	invalid := func() error {
		return &domain.ValidationError{
			Kind: domain.ErrInvalidDependencyList,
			Task: task,
			Msg:  fmt.Sprintf("Invalid dependencies for task '%s': must be a list", task),
		}
	}

	switch list := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return list, nil
	case []any:
		deps := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, invalid()
			}
			deps[i] = s
		}
		return deps, nil
	default:
		return nil, invalid()
	}
}
