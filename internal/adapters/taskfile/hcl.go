package taskfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// hclTaskFile represents the top-level structure of an HCL task file.
type hclTaskFile struct {
	Tasks []*hclTask `hcl:"task,block"`
}

// hclTask is a `task "<name>" { ... }` block. Attributes other than kind
// are evaluated without variables and converted to Go values.
type hclTask struct {
	Name string   `hcl:"name,label"`
	Kind *string  `hcl:"kind,optional"`
	Body hcl.Body `hcl:",remain"`
}

func decodeHCL(data []byte, filename string) ([]domain.Description, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL task file %s: %w", filename, diags)
	}

	var parsed hclTaskFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL task file %s: %w", filename, diags)
	}

	entries := make([]any, 0, len(parsed.Tasks))
	for _, t := range parsed.Tasks {
		entry, err := hclEntry(t)
		if err != nil {
			return nil, fmt.Errorf("task '%s' in %s: %w", t.Name, filename, err)
		}
		entries = append(entries, entry)
	}
	return fromDocument(entries, "task")
}

func hclEntry(t *hclTask) (map[string]any, error) {
	entry := map[string]any{keyName: t.Name}
	if t.Kind != nil {
		entry[keyKind] = *t.Kind
	}

	attrs, diags := t.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		entry[name] = native
	}
	return entry, nil
}

// ctyToNative converts a cty.Value to plain Go values: strings, float64,
// bool, []any and map[string]any.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported type %s", ty.FriendlyName())
	}
}
