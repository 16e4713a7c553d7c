package core

// scheduler.go keeps the search snapshot warm in the background so the first
// search after a refresh interval does not pay for the rebuild.

import (
	"context"
	"log/slog"
	"time"
)

// StartIndexRefresher builds the search index immediately, then rebuilds it
// every interval until ctx is cancelled. A failed build is logged and retried
// on the next tick. interval <= 0 only performs the initial build.
func (s *Service) StartIndexRefresher(ctx context.Context, interval time.Duration) {
	slog.Info("index refresher started", "interval", interval.String())

	s.refreshIndex(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("index refresher stopped")
			return
		case <-ticker.C:
			s.refreshIndex(ctx)
		}
	}
}

func (s *Service) refreshIndex(ctx context.Context) {
	start := time.Now()
	ix, err := s.index.Rebuild(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("index refresh failed", "error", err)
		}
		return
	}
	slog.Debug("index refreshed",
		"records", ix.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
