package server

import (
	"context"
	"time"

	"github.com/dmitrijs2005/farmtrack/internal/logging"
)

type expiredPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// runPurger deletes expired token rows every interval until ctx is done.
func runPurger(ctx context.Context, p expiredPurger, interval time.Duration, l logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := p.PurgeExpired(ctx, now)
			if err != nil {
				l.Error(ctx, "token purge failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info(ctx, "expired tokens purged", "count", n)
			}
		}
	}
}
