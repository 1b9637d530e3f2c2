package store

// retention.go runs the periodic purge of expired runs.
//
// Runs hold patient identifiers and are deleted once older than MaxAge.
// The job stops with its context. A failed purge is logged and retried on
// the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig controls the purge job. Zero values use the defaults.
type RetentionConfig struct {
	MaxAge        time.Duration // default: 24h
	CheckInterval time.Duration // default: 1h
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.MaxAge <= 0 {
		c.MaxAge = 24 * time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Hour
	}
	return c
}

// StartRetention purges runs older than MaxAge immediately and then every
// CheckInterval until ctx is cancelled.
func StartRetention(ctx context.Context, s Store, cfg RetentionConfig, logger *slog.Logger) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("retention job started",
		"max_age", cfg.MaxAge.String(),
		"check_interval", cfg.CheckInterval.String(),
	)

	PurgeOnce(ctx, s, cfg.MaxAge, logger)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("retention job stopped")
			return
		case <-ticker.C:
			PurgeOnce(ctx, s, cfg.MaxAge, logger)
		}
	}
}

// PurgeOnce performs one purge cycle and returns the number of runs
// removed.
func PurgeOnce(ctx context.Context, s Store, maxAge time.Duration, logger *slog.Logger) int64 {
	start := time.Now()
	purged, err := s.Purge(ctx, start.Add(-maxAge))
	if err != nil {
		logger.Error("purge failed", "error", err)
		return 0
	}
	logger.Info("purged expired runs",
		"runs_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return purged
}
