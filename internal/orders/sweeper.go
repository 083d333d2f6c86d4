package orders

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper force-expires pending orders whose checkout deadline has passed,
// so a lost gateway callback cannot strand an order in pending forever.
type Sweeper struct {
	repo     *Repository
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(repo *Repository, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{repo: repo, interval: interval, logger: logger}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.repo.ExpireOverdue(ctx, time.Now().UTC())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error("expiry sweep failed", "error", err)
				continue
			}
			if expired > 0 {
				s.logger.Info("expired overdue orders", "count", expired)
			}
		}
	}
}
