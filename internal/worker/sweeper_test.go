package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/motoshop/order-service/internal/domain"
)

type stubCanceller struct {
	stale     []string
	listErr   error
	cancelErr map[string]error
	cancelled []string
	cutoffs   []time.Time
}

func (s *stubCanceller) FindStalePending(ctx context.Context, olderThan time.Time) ([]string, error) {
	s.cutoffs = append(s.cutoffs, olderThan)
	return s.stale, s.listErr
}

func (s *stubCanceller) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	if err, ok := s.cancelErr[id]; ok {
		return nil, err
	}
	s.cancelled = append(s.cancelled, id)
	return &domain.Order{ID: id, Status: domain.OrderStatusCancelled}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweep(t *testing.T) {
	t.Run("cancels every stale order", func(t *testing.T) {
		store := &stubCanceller{stale: []string{"order-1", "order-2"}}
		sweeper := NewSweeper(store, 24*time.Hour, time.Minute, discardLogger())

		sweeper.Sweep(context.Background())

		if len(store.cancelled) != 2 {
			t.Fatalf("expected 2 cancellations, got %v", store.cancelled)
		}
	})

	t.Run("cutoff honors the ttl", func(t *testing.T) {
		store := &stubCanceller{}
		sweeper := NewSweeper(store, 24*time.Hour, time.Minute, discardLogger())

		before := time.Now().UTC().Add(-24 * time.Hour)
		sweeper.Sweep(context.Background())
		after := time.Now().UTC().Add(-24 * time.Hour)

		cutoff := store.cutoffs[0]
		if cutoff.Before(before) || cutoff.After(after) {
			t.Errorf("cutoff %v outside expected window [%v, %v]", cutoff, before, after)
		}
	})

	t.Run("skips orders that lost the status race", func(t *testing.T) {
		store := &stubCanceller{
			stale:     []string{"order-1", "order-2", "order-3"},
			cancelErr: map[string]error{"order-2": domain.ErrNotPending},
		}
		sweeper := NewSweeper(store, 24*time.Hour, time.Minute, discardLogger())

		sweeper.Sweep(context.Background())

		if len(store.cancelled) != 2 {
			t.Fatalf("expected 2 cancellations, got %v", store.cancelled)
		}
		for _, id := range store.cancelled {
			if id == "order-2" {
				t.Error("order-2 should have been skipped")
			}
		}
	})

	t.Run("keeps going past individual failures", func(t *testing.T) {
		store := &stubCanceller{
			stale:     []string{"order-1", "order-2"},
			cancelErr: map[string]error{"order-1": errors.New("connection reset")},
		}
		sweeper := NewSweeper(store, 24*time.Hour, time.Minute, discardLogger())

		sweeper.Sweep(context.Background())

		if len(store.cancelled) != 1 || store.cancelled[0] != "order-2" {
			t.Fatalf("expected only order-2 cancelled, got %v", store.cancelled)
		}
	})
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &stubCanceller{}
	sweeper := NewSweeper(store, time.Hour, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}

	if len(store.cutoffs) == 0 {
		t.Error("expected at least one sweep before cancellation")
	}
}
