package service

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often expired refresh tokens are purged.
const DefaultSweepInterval = time.Hour

// ExpiredTokenStore deletes refresh tokens that can no longer be used.
type ExpiredTokenStore interface {
	DeleteExpiredRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenSweeper periodically deletes refresh tokens that expired or were
// revoked before the cutoff.
type TokenSweeper struct {
	store    ExpiredTokenStore
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewTokenSweeper creates a sweeper. A non-positive interval uses DefaultSweepInterval.
func NewTokenSweeper(store ExpiredTokenStore, interval time.Duration, logger *slog.Logger) *TokenSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &TokenSweeper{
		store:    store,
		interval: interval,
		logger:   logger.With("component", "token_sweeper"),
		now:      time.Now,
	}
}

// Run sweeps once per interval until ctx is cancelled.
func (s *TokenSweeper) Run(ctx context.Context) error {
	s.logger.Info("token sweeper started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("token sweeper stopping")
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				s.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce deletes tokens unusable as of now and returns how many went.
func (s *TokenSweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredRefreshTokens(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired refresh tokens deleted", "count", n)
	}
	return n, nil
}
