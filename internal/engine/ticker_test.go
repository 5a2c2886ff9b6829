package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingSimulator struct {
	calls atomic.Int32
	err   error
}

func (c *countingSimulator) SimulateAll(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestTicker_TicksUntilCancelled(t *testing.T) {
	sim := &countingSimulator{}
	ticker := NewTicker(5*time.Millisecond, sim, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ticker.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for sim.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if sim.calls.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", sim.calls.Load())
	}

	time.Sleep(20 * time.Millisecond)
	after := sim.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if sim.calls.Load() != after {
		t.Fatal("ticker kept running after cancellation")
	}
}

func TestTicker_DisabledWithZeroInterval(t *testing.T) {
	sim := &countingSimulator{}
	NewTicker(0, sim, nil).Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	if sim.calls.Load() != 0 {
		t.Fatalf("expected no ticks, got %d", sim.calls.Load())
	}
}

func TestTicker_TickLogsErrors(t *testing.T) {
	sim := &countingSimulator{err: errors.New("boom")}
	ticker := NewTicker(time.Second, sim, nil)

	ticker.tick(context.Background())
	if sim.calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", sim.calls.Load())
	}
}
