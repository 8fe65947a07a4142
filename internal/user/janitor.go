package user

import (
	"context"
	"log/slog"
	"time"
)

// SessionCleaner is the subset of Store used by the janitor.
type SessionCleaner interface {
	CleanExpiredSessions(ctx context.Context) (int64, error)
}

// RunSessionJanitor deletes expired sessions every interval until ctx is
// cancelled. Errors are logged, never returned. onPurge, if given, receives
// the number of sessions removed by each successful pass.
func RunSessionJanitor(ctx context.Context, cleaner SessionCleaner, interval time.Duration, onPurge ...func(int64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := cleaner.CleanExpiredSessions(ctx)
			if err != nil {
				slog.Error("failed to clean expired sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("cleaned expired sessions", "count", n)
			}
			for _, fn := range onPurge {
				fn(n)
			}
		case <-ctx.Done():
			return
		}
	}
}
