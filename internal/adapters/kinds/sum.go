package kinds

import (
	"context"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// SumBody returns the sum of its 'first' and 'second' attributes.
type SumBody struct {
	domain.NopBody
}

func newSum(d domain.Description) (domain.Body, error) {
	if err := requireAttrs(d.Attributes, "first", "second"); err != nil {
		return nil, err
	}
	return SumBody{}, nil
}

func (SumBody) Run(_ context.Context, t *domain.Task) (any, error) {
	first, err := t.Float("first")
	if err != nil {
		return nil, err
	}
	second, err := t.Float("second")
	if err != nil {
		return nil, err
	}
	return first + second, nil
}
