package lumen

import (
	"context"
	"time"
)

// RunRealtime calls e.Update every interval until ctx is done, from a
// single goroutine (the caller's). It returns ctx.Err(). The engine must not
// be touched from other goroutines while RunRealtime is running; use
// SetUpdateFunc to act inside the frame.
func RunRealtime(ctx context.Context, e *Engine, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second / 60
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			e.Update()
		}
	}
}
