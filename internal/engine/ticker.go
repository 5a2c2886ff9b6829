package engine

import (
	"context"
	"log/slog"
	"time"
)

// PriceSimulator moves every instrument's price one step.
type PriceSimulator interface {
	SimulateAll(ctx context.Context) error
}

// Ticker periodically advances simulated prices.
type Ticker struct {
	interval  time.Duration
	simulator PriceSimulator
	logger    *slog.Logger
}

// NewTicker creates a Ticker with the given interval.
func NewTicker(interval time.Duration, simulator PriceSimulator, logger *slog.Logger) *Ticker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ticker{
		interval:  interval,
		simulator: simulator,
		logger:    logger.With("component", "ticker"),
	}
}

// Start launches a background goroutine that ticks at the configured
// interval. It stops when ctx is cancelled. A non-positive interval
// disables the ticker.
func (t *Ticker) Start(ctx context.Context) {
	if t.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.tick(ctx)
			}
		}
	}()
}

func (t *Ticker) tick(ctx context.Context) {
	if err := t.simulator.SimulateAll(ctx); err != nil && ctx.Err() == nil {
		t.logger.Error("price tick failed", "error", err)
	}
}
