package timer

import (
	"context"
	"time"
)

// SetInterval calls f every duration until ctx is done or the returned stop
// function is called.
func SetInterval(ctx context.Context, duration time.Duration, f func()) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	t := time.NewTicker(duration)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				f()
			}
		}
	}()
	return cancel
}
