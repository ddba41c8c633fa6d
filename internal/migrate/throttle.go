package migrate

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// throttle enforces the fixed inter-record delay.
//
// Built on [rate.Limiter] with burst 1; the initial token is drained at
// construction so the wait applies before the first record too, bounding the
// steady-state request rate independent of the remote's behavior.
type throttle struct {
	lim *rate.Limiter
}

func newThrottle(interval time.Duration) *throttle {
	if interval <= 0 {
		return &throttle{}
	}
	lim := rate.NewLimiter(rate.Every(interval), 1)
	lim.Allow()
	return &throttle{lim: lim}
}

// Wait blocks until the next record may be processed or the context is done.
func (t *throttle) Wait(ctx context.Context) error {
	if t.lim == nil {
		return ctx.Err()
	}
	return t.lim.Wait(ctx)
}

// sleep waits the given duration, aborting early if the context is done.
// Used for the rate-limit cooldown, which is a plain fixed wait.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
