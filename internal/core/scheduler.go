package core

// scheduler.go runs background maintenance for grid sessions.
//
// Sessions are held in memory and abandoned browser tabs never close theirs,
// so a janitor periodically closes sessions idle for longer than the session
// TTL. It logs what it does and never stops the application on its own.

import (
	"context"
	"log/slog"
	"time"
)

// JanitorConfig holds configuration for the session janitor.
type JanitorConfig struct {
	CheckInterval time.Duration // How often to run (default: 1m)
}

// StartSessionJanitor closes idle sessions every CheckInterval until ctx is cancelled.
func (s *Service) StartSessionJanitor(ctx context.Context, cfg JanitorConfig) {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}

	slog.Info("session janitor started",
		"interval", cfg.CheckInterval,
		"session_ttl", s.sessionTTL,
	)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case now := <-ticker.C:
			s.runJanitor(now)
		}
	}
}

func (s *Service) runJanitor(now time.Time) {
	start := time.Now()
	expired := s.ExpireIdle(now)
	if expired == 0 {
		return
	}
	slog.Info("expired idle grid sessions",
		"expired", expired,
		"remaining", s.Sessions(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
