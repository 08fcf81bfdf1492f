package kinds

import (
	"fmt"
	"time"
)

// Attribute readers used by factories, before any Task exists. At run time
// bodies read through the Task helpers instead.

func attrString(attrs map[string]any, key string) (string, bool, error) {
	v, ok := attrs[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("attribute %q is %T, not a string", key, v)
	}
	return s, true, nil
}

func attrStrings(attrs map[string]any, key string) ([]string, error) {
	v, ok := attrs[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("attribute %q: item %d is %T, not a string", key, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("attribute %q is %T, not a list of strings", key, v)
	}
}

func attrStringMap(attrs map[string]any, key string) (map[string]string, error) {
	v, ok := attrs[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch m := v.(type) {
	case map[string]string:
		return m, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, item := range m {
			out[k] = fmt.Sprint(item)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("attribute %q is %T, not a map", key, v)
	}
}

func attrDuration(attrs map[string]any, key string, def time.Duration) (time.Duration, error) {
	v, ok := attrs[key]
	if !ok || v == nil {
		return def, nil
	}
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, fmt.Errorf("attribute %q: %w", key, err)
		}
		return parsed, nil
	case float64:
		return time.Duration(d * float64(time.Second)), nil
	case int:
		return time.Duration(d) * time.Second, nil
	case int64:
		return time.Duration(d) * time.Second, nil
	default:
		return 0, fmt.Errorf("attribute %q is %T, not a duration", key, v)
	}
}

func requireAttrs(attrs map[string]any, keys ...string) error {
	for _, k := range keys {
		if _, ok := attrs[k]; !ok {
			return fmt.Errorf("missing attribute %q", k)
		}
	}
	return nil
}
