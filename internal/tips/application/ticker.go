package application

import (
	"context"
	"errors"
	"time"

	live "riftcoach/internal/livegame/domain"
)

// DefaultTickInterval is the evaluation cadence. It must stay below DefaultSlack.
const DefaultTickInterval = time.Second

// SnapshotReader returns the most recent snapshot, if any.
type SnapshotReader interface {
	Latest() (live.Snapshot, bool)
}

// Ticker feeds the latest snapshot to the engine on a fixed cadence.
type Ticker struct {
	engine    *Engine
	snapshots SnapshotReader
	interval  time.Duration
}

// NewTicker constructs a Ticker.
func NewTicker(engine *Engine, snapshots SnapshotReader, interval time.Duration) (*Ticker, error) {
	if engine == nil {
		return nil, errors.New("tips ticker: nil engine")
	}
	if snapshots == nil {
		return nil, errors.New("tips ticker: nil snapshot reader")
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Ticker{engine: engine, snapshots: snapshots, interval: interval}, nil
}

// Start runs the loop until ctx is done.
func (t *Ticker) Start(ctx context.Context) {
	if t == nil {
		return
	}
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.RunOnce(ctx)
		}
	}
}

// RunOnce evaluates the latest snapshot. It does nothing before the first snapshot.
func (t *Ticker) RunOnce(ctx context.Context) int {
	snap, ok := t.snapshots.Latest()
	if !ok {
		return 0
	}
	return len(t.engine.Tick(ctx, snap))
}
