package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
)

// await runs call under a deadline and returns whichever of the call's result or the deadline
// comes first. The call's context is cancelled on return, so a call that lost the race is
// aborted and its goroutine exits as soon as it observes the cancellation.
func await[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	// Buffered so the losing call can always deliver and exit.
	done := make(chan result, 1)
	go func() {
		v, err := call(ctx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return r.val, &models.Error{Kind: models.KindTimeout, Err: r.err}
		}
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, &models.Error{Kind: models.KindTimeout, Err: ctx.Err()}
		}
		return zero, ctx.Err()
	}
}
