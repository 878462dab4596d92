package utils

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Every returns a worker that calls fn once per period on clk until its context is done. A tick
// that arrives while fn is still running is dropped by the ticker, so ticks never queue up.
func Every(clk clock.Clock, period time.Duration, fn func(context.Context)) func(context.Context) {
	return func(ctx context.Context) {
		t := clk.Ticker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			if ctx.Err() != nil {
				return
			}
			fn(ctx)
		}
	}
}

// PeriodFromHz converts a rate into a tick period. Non-positive rates yield zero.
func PeriodFromHz(hz float64) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / hz)
}
