// Package relay republishes stream events on Redis pub/sub for out-of-process overlays.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"riftcoach/internal/observability/metrics"
)

const (
	defaultPrefix  = "riftcoach"
	defaultBuffer  = 128
	defaultTimeout = 2 * time.Second
	connectTimeout = 5 * time.Second
)

// ErrBufferFull is reported when an event is dropped because Redis is not keeping up.
var ErrBufferFull = errors.New("relay: buffer full")

// Client is the subset of the Redis client the relay needs.
type Client interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("relay: empty redis address")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("relay: connect redis: %w", err)
	}
	return client, nil
}

type message struct {
	channel string
	payload []byte
}

// Publisher sends every event to PUBLISH <prefix>:<event>. Broadcast never blocks.
type Publisher struct {
	client  Client
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
	queue   chan message
	wg      sync.WaitGroup
}

// Option configures the publisher.
type Option func(*Publisher)

// WithPrefix sets the channel prefix.
func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBuffer sets the queue capacity.
func WithBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.queue = make(chan message, size)
		}
	}
}

// NewPublisher constructs a Publisher.
func NewPublisher(client Client, opts ...Option) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("relay: nil redis client")
	}
	p := &Publisher{
		client:  client,
		prefix:  defaultPrefix,
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
		queue:   make(chan message, defaultBuffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("relay")
	return p, nil
}

// Channel returns the Redis channel for an event.
func (p *Publisher) Channel(event string) string {
	return p.prefix + ":" + event
}

// Broadcast implements stream.Sink.
func (p *Publisher) Broadcast(event string, payload []byte) {
	if p == nil {
		return
	}
	select {
	case p.queue <- message{channel: p.Channel(event), payload: payload}:
	default:
		metrics.IncSinkError("redis")
		p.logger.Debug("relay event dropped", zap.String("event", event), zap.Error(ErrBufferFull))
	}
}

// Start launches the delivery worker.
func (p *Publisher) Start(ctx context.Context) {
	if p == nil {
		return
	}
	p.wg.Add(1)
	go p.run(ctx)
}

// Close waits for the worker to drain after ctx is cancelled.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.wg.Wait()
}

func (p *Publisher) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case msg := <-p.queue:
					p.publish(context.Background(), msg)
				default:
					return
				}
			}
		case msg := <-p.queue:
			p.publish(ctx, msg)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, msg message) {
	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.Publish(pubCtx, msg.channel, msg.payload).Err(); err != nil {
		metrics.IncSinkError("redis")
		p.logger.Warn("relay publish failed", zap.String("channel", msg.channel), zap.Error(err))
	}
}
