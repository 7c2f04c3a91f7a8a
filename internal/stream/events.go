// Package stream pushes snapshots and tips to overlay consumers over SSE and WebSocket and
// serves the local HTTP API.
package stream

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	live "riftcoach/internal/livegame/domain"
	tips "riftcoach/internal/tips/domain"
)

// Event names shared by every transport.
const (
	EventReady    = "ready"
	EventSnapshot = "snapshot"
	EventTip      = "tip"
)

// Sink receives encoded events. Implementations must not block.
type Sink interface {
	Broadcast(event string, payload []byte)
}

// Fanout encodes snapshots and tips once and hands them to every sink.
type Fanout struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewFanout constructs a Fanout. Nil sinks are skipped.
func NewFanout(logger *zap.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	kept := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	return &Fanout{sinks: kept, logger: logger.Named("fanout")}
}

// PublishSnapshot implements the poller's snapshot publisher.
func (f *Fanout) PublishSnapshot(_ context.Context, snap live.Snapshot) {
	f.send(EventSnapshot, snap)
}

// NotifyTip implements the tip notifier.
func (f *Fanout) NotifyTip(_ context.Context, tip tips.Tip) {
	f.send(EventTip, tip)
}

func (f *Fanout) send(event string, value any) {
	if f == nil || len(f.sinks) == 0 {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		f.logger.Warn("event encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	for _, sink := range f.sinks {
		sink.Broadcast(event, payload)
	}
}

// Frame is the WebSocket envelope.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
