package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"riftcoach/internal/livegame/domain"
	"riftcoach/internal/observability/metrics"
)

// MinPollInterval is the smallest accepted poll interval.
const MinPollInterval = 100 * time.Millisecond

// ErrInvalidInterval is returned for intervals below MinPollInterval.
var ErrInvalidInterval = errors.New("poller: interval too small")

// SnapshotSource produces snapshots.
type SnapshotSource interface {
	Aggregate(ctx context.Context) (domain.Snapshot, error)
}

// Poller runs the aggregator on a fixed interval. Cycles never overlap.
type Poller struct {
	source    SnapshotSource
	store     *SnapshotStore
	publisher SnapshotPublisher
	clock     Clock
	logger    *zap.Logger

	mu       sync.Mutex
	interval time.Duration
	parent   context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	cycleMu sync.Mutex
}

// PollerOption configures the poller.
type PollerOption func(*Poller)

// WithPublisher receives every snapshot.
func WithPublisher(publisher SnapshotPublisher) PollerOption {
	return func(p *Poller) {
		p.publisher = publisher
	}
}

// WithPollerClock overrides the clock used for error snapshots.
func WithPollerClock(clock Clock) PollerOption {
	return func(p *Poller) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithPollerLogger sets the logger.
func WithPollerLogger(logger *zap.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPoller constructs a Poller.
func NewPoller(source SnapshotSource, store *SnapshotStore, interval time.Duration, opts ...PollerOption) (*Poller, error) {
	if source == nil {
		return nil, errors.New("poller: nil source")
	}
	if store == nil {
		return nil, errors.New("poller: nil store")
	}
	if interval < MinPollInterval {
		return nil, ErrInvalidInterval
	}
	p := &Poller{
		source:   source,
		store:    store,
		clock:    systemClock{},
		logger:   zap.NewNop(),
		interval: interval,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("poller")
	return p, nil
}

// Start launches the poll loop. It polls once immediately.
func (p *Poller) Start(ctx context.Context) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	p.parent = ctx
	p.startLocked()
}

// Stop ends the poll loop and waits for an in-flight cycle to finish.
func (p *Poller) Stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Interval returns the current poll interval.
func (p *Poller) Interval() time.Duration {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// SetInterval replaces the running timer: the current loop is stopped and waited for
// before a loop with the new interval starts. A stopped poller only records the interval.
func (p *Poller) SetInterval(interval time.Duration) error {
	if p == nil {
		return errors.New("poller: nil")
	}
	if interval < MinPollInterval {
		return ErrInvalidInterval
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = interval
	if p.cancel == nil {
		return nil
	}
	p.stopLocked()
	p.startLocked()
	p.logger.Info("poll interval changed", zap.Duration("interval", interval))
	return nil
}

func (p *Poller) startLocked() {
	ctx, cancel := context.WithCancel(p.parent)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	go p.loop(ctx, p.interval, done)
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}

func (p *Poller) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce runs one aggregation cycle, stores and publishes the result. A cycle cancelled
// mid-flight is discarded.
func (p *Poller) PollOnce(ctx context.Context) (domain.Snapshot, bool) {
	if p == nil {
		return domain.Snapshot{}, false
	}
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	start := time.Now()
	snap, err := p.source.Aggregate(ctx)
	if ctx.Err() != nil {
		return domain.Snapshot{}, false
	}
	if err != nil {
		metrics.ObservePoll(metrics.ResultError, time.Since(start))
		p.logger.Debug("aggregation failed", zap.Error(err))
		snap = p.store.Fail(err, p.clock.Now())
	} else {
		metrics.ObservePoll(metrics.ResultSuccess, time.Since(start))
		snap = p.store.Accept(snap)
	}
	if p.publisher != nil {
		p.publisher.PublishSnapshot(ctx, snap)
	}
	return snap, true
}
