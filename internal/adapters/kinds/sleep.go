package kinds

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

const defaultSleep = 100 * time.Millisecond

// SleepBody waits for its 'duration' attribute or until the run is cancelled.
type SleepBody struct {
	domain.NopBody
}

func newSleep(d domain.Description) (domain.Body, error) {
	if _, err := attrDuration(d.Attributes, "duration", defaultSleep); err != nil {
		return nil, err
	}
	return SleepBody{}, nil
}

func (SleepBody) Run(ctx context.Context, t *domain.Task) (any, error) {
	d, err := t.Duration("duration", defaultSleep)
	if err != nil {
		return nil, err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return d.String(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
