package session

import (
	"context"
	"log/slog"
	"time"
)

// StartReaper runs a background goroutine that periodically drops live
// conversations idle for longer than idle.
func StartReaper(ctx context.Context, reg *Registry, interval, idle time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session reaper started", "interval", interval, "idle", idle)

		for {
			select {
			case <-ticker.C:
				if n := reg.Reap(idle); n > 0 {
					slog.Info("Session reaper dropped idle conversations", "count", n, "live", reg.Len())
				}
			case <-ctx.Done():
				slog.Info("Session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
