package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/motoshop/order-service/internal/domain"
)

// OrderCanceller is the slice of sales.Manager the sweeper needs.
type OrderCanceller interface {
	FindStalePending(ctx context.Context, olderThan time.Time) ([]string, error)
	Cancel(ctx context.Context, id string) (*domain.Order, error)
}

// Sweeper reconciles abandoned checkouts: PENDING orders older than the TTL
// are cancelled, which returns their reserved stock. Orders that race a
// concurrent capture simply lose the status check-and-set and are skipped.
type Sweeper struct {
	store    OrderCanceller
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(store OrderCanceller, ttl, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep cancels every stale PENDING order once.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.ttl)

	ids, err := s.store.FindStalePending(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to list stale pending orders", "error", err)
		return
	}

	for _, id := range ids {
		if _, err := s.store.Cancel(ctx, id); err != nil {
			if errors.Is(err, domain.ErrNotPending) {
				continue
			}
			s.logger.Error("failed to cancel stale order", "error", err, "order_id", id)
			continue
		}
		s.logger.Info("stale pending order cancelled", "order_id", id, "cutoff", cutoff)
	}
}
