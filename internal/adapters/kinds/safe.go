package kinds

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// SafeBody bounds the run hook of another body with a timeout. The inner
// body receives a context that expires with the timeout; if it does not
// return in time the task fails with a timeout error. Run never returns
// before the inner body has returned, so a timed-out body cannot outlive
// its task.
type SafeBody struct {
	inner   domain.Body
	timeout time.Duration
}

// NewSafeBody wraps body with a run timeout.
func NewSafeBody(body domain.Body, timeout time.Duration) *SafeBody {
	if timeout <= 0 {
		timeout = 10 * time.Second // Default timeout
	}
	return &SafeBody{inner: body, timeout: timeout}
}

// Unwrap returns the wrapped body.
func (s *SafeBody) Unwrap() domain.Body { return s.inner }

func (s *SafeBody) Setup(ctx context.Context, t *domain.Task) error {
	return s.inner.Setup(ctx, t)
}

func (s *SafeBody) Teardown(ctx context.Context, t *domain.Task) error {
	return s.inner.Teardown(ctx, t)
}

// Run runs the inner body with a timeout.
func (s *SafeBody) Run(ctx context.Context, t *domain.Task) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	resultChan := make(chan outcome, 1)
	go func() {
		var res outcome
		if r := panics.Try(func() { res.value, res.err = s.inner.Run(ctx, t) }); r != nil {
			res = outcome{err: r.AsError()}
		}
		resultChan <- res
	}()

	select {
	case res := <-resultChan:
		return res.value, res.err
	case <-ctx.Done():
		err := ctx.Err()
		cancel()
		<-resultChan
		return nil, fmt.Errorf("task execution timed out after %s: %w", s.timeout, err)
	}
}
