// Package notify delivers emitted tips to external channels.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"riftcoach/internal/observability/metrics"
	tips "riftcoach/internal/tips/domain"
)

const (
	defaultWorkers        = 2
	defaultBufferSize     = 64
	defaultRatePerMinute  = 30
	defaultRequestTimeout = 5 * time.Second
)

// ErrQueueFull is returned when a tip is dropped because the send buffer is full.
var ErrQueueFull = errors.New("tip notifier: send buffer full")

// WebhookNotifier renders tips and sends them through a Channel from a worker pool.
// Enqueueing never blocks the caller; tips are dropped when the buffer is full or a
// rule exceeds its rate.
type WebhookNotifier struct {
	channel        Channel
	template       *Template
	logger         *zap.Logger
	workers        int
	requestTimeout time.Duration
	minSeverity    tips.Severity

	sendCh chan tips.Tip
	wg     sync.WaitGroup

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// Option configures the notifier.
type Option func(*WebhookNotifier)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(n *WebhookNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithWorkers sets the number of delivery workers.
func WithWorkers(workers int) Option {
	return func(n *WebhookNotifier) {
		if workers > 0 {
			n.workers = workers
		}
	}
}

// WithBufferSize sets the send buffer capacity.
func WithBufferSize(size int) Option {
	return func(n *WebhookNotifier) {
		if size > 0 {
			n.sendCh = make(chan tips.Tip, size)
		}
	}
}

// WithRateLimit caps deliveries per rule.
func WithRateLimit(perMinute int) Option {
	return func(n *WebhookNotifier) {
		if perMinute > 0 {
			n.limit = rate.Limit(float64(perMinute) / 60.0)
			n.burst = max(1, perMinute/10)
		}
	}
}

// WithRequestTimeout bounds each delivery.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(n *WebhookNotifier) {
		if timeout > 0 {
			n.requestTimeout = timeout
		}
	}
}

// WithMinSeverity drops tips below the given severity.
func WithMinSeverity(severity tips.Severity) Option {
	return func(n *WebhookNotifier) {
		n.minSeverity = severity
	}
}

// NewWebhookNotifier constructs a WebhookNotifier. A nil template uses DefaultTemplate.
func NewWebhookNotifier(channel Channel, template *Template, opts ...Option) (*WebhookNotifier, error) {
	if channel == nil {
		return nil, errors.New("tip notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &WebhookNotifier{
		channel:        channel,
		template:       template,
		logger:         zap.NewNop(),
		workers:        defaultWorkers,
		requestTimeout: defaultRequestTimeout,
		minSeverity:    tips.SeverityInfo,
		sendCh:         make(chan tips.Tip, defaultBufferSize),
		limiters:       make(map[string]*rate.Limiter),
		limit:          rate.Limit(float64(defaultRatePerMinute) / 60.0),
		burst:          max(1, defaultRatePerMinute/10),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.Named("webhook")
	return n, nil
}

// Start launches the workers. Call Close after ctx is cancelled to wait for the drain.
func (n *WebhookNotifier) Start(ctx context.Context) {
	if n == nil {
		return
	}
	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.worker(ctx)
	}
}

// Close waits for all workers to finish.
func (n *WebhookNotifier) Close() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

// NotifyTip enqueues the tip for delivery.
func (n *WebhookNotifier) NotifyTip(_ context.Context, tip tips.Tip) {
	if n == nil {
		return
	}
	if severityRank(tip.Severity) < severityRank(n.minSeverity) {
		return
	}
	if !n.allow(tip.ID) {
		n.logger.Debug("tip rate limited", zap.String("rule", tip.ID))
		return
	}
	select {
	case n.sendCh <- tip:
	default:
		metrics.IncSinkError("webhook")
		n.logger.Warn("webhook send buffer full, dropping tip", zap.String("rule", tip.ID), zap.Error(ErrQueueFull))
	}
}

func (n *WebhookNotifier) allow(rule string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	limiter, ok := n.limiters[rule]
	if !ok {
		limiter = rate.NewLimiter(n.limit, n.burst)
		n.limiters[rule] = limiter
	}
	return limiter.Allow()
}

// worker drains the queue; after cancellation it flushes what is still buffered.
func (n *WebhookNotifier) worker(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case tip := <-n.sendCh:
					n.deliver(context.Background(), tip)
				default:
					return
				}
			}
		case tip := <-n.sendCh:
			n.deliver(ctx, tip)
		}
	}
}

func (n *WebhookNotifier) deliver(ctx context.Context, tip tips.Tip) {
	content, err := n.template.Render(buildTemplateData(tip))
	if err != nil {
		metrics.IncSinkError("webhook")
		n.logger.Warn("tip render failed", zap.String("rule", tip.ID), zap.Error(err))
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, n.requestTimeout)
	defer cancel()
	if err := n.channel.Send(sendCtx, content); err != nil {
		metrics.IncSinkError("webhook")
		n.logger.Warn("tip delivery failed", zap.String("rule", tip.ID), zap.Error(err))
	}
}

func severityRank(severity tips.Severity) int {
	switch severity {
	case tips.SeverityCritical:
		return 3
	case tips.SeverityWarning:
		return 2
	case tips.SeverityInfo:
		return 1
	default:
		return 0
	}
}
