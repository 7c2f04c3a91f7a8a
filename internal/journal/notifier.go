package journal

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"riftcoach/internal/observability/metrics"
	tips "riftcoach/internal/tips/domain"
)

const (
	defaultBuffer      = 64
	defaultInsertLimit = 3 * time.Second
)

// Writer is the persistence side of the notifier.
type Writer interface {
	Insert(ctx context.Context, entry Entry) error
}

// Notifier records tips off the caller's goroutine.
type Notifier struct {
	writer Writer
	logger *zap.Logger
	queue  chan Entry
	wg     sync.WaitGroup
}

// NewNotifier constructs a Notifier.
func NewNotifier(writer Writer, logger *zap.Logger) (*Notifier, error) {
	if writer == nil {
		return nil, errors.New("journal notifier: nil writer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		writer: writer,
		logger: logger.Named("journal"),
		queue:  make(chan Entry, defaultBuffer),
	}, nil
}

// NotifyTip queues the tip. It is dropped when the queue is full.
func (n *Notifier) NotifyTip(_ context.Context, tip tips.Tip) {
	if n == nil {
		return
	}
	select {
	case n.queue <- EntryFromTip(tip):
	default:
		metrics.IncSinkError("journal")
		n.logger.Warn("journal queue full, dropping tip", zap.String("rule", tip.ID))
	}
}

// Start launches the writer.
func (n *Notifier) Start(ctx context.Context) {
	if n == nil {
		return
	}
	n.wg.Add(1)
	go n.run(ctx)
}

// Close waits until the queue is drained after ctx is cancelled.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *Notifier) run(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case entry := <-n.queue:
					n.write(context.Background(), entry)
				default:
					return
				}
			}
		case entry := <-n.queue:
			n.write(ctx, entry)
		}
	}
}

func (n *Notifier) write(ctx context.Context, entry Entry) {
	insertCtx, cancel := context.WithTimeout(ctx, defaultInsertLimit)
	defer cancel()
	if err := n.writer.Insert(insertCtx, entry); err != nil {
		metrics.IncSinkError("journal")
		n.logger.Warn("journal insert failed", zap.String("rule", entry.RuleID), zap.Error(err))
	}
}
