package stream

import (
	"encoding/json"
	"net/http"
	"sync"

	live "riftcoach/internal/livegame/domain"
	"riftcoach/internal/observability/metrics"
)

const sseClientBuffer = 16

type sseEvent struct {
	name    string
	payload []byte
}

// SSEBroker fans out events to connected SSE clients. Slow clients miss events.
type SSEBroker struct {
	mu      sync.Mutex
	clients map[chan sseEvent]struct{}
}

// NewSSEBroker constructs a broker.
func NewSSEBroker() *SSEBroker {
	return &SSEBroker{clients: make(map[chan sseEvent]struct{})}
}

// Broadcast implements Sink.
func (b *SSEBroker) Broadcast(event string, payload []byte) {
	if b == nil {
		return
	}
	b.mu.Lock()
	clients := make([]chan sseEvent, 0, len(b.clients))
	for ch := range b.clients {
		clients = append(clients, ch)
	}
	b.mu.Unlock()
	for _, ch := range clients {
		select {
		case ch <- sseEvent{name: event, payload: payload}:
		default:
		}
	}
}

// Subscribe registers a new client channel.
func (b *SSEBroker) Subscribe() chan sseEvent {
	if b == nil {
		return nil
	}
	ch := make(chan sseEvent, sseClientBuffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	metrics.AddStreamSubscribers("sse", 1)
	return ch
}

// Unsubscribe removes a client channel.
func (b *SSEBroker) Unsubscribe(ch chan sseEvent) {
	if b == nil || ch == nil {
		return
	}
	b.mu.Lock()
	_, ok := b.clients[ch]
	delete(b.clients, ch)
	b.mu.Unlock()
	if ok {
		metrics.AddStreamSubscribers("sse", -1)
	}
}

// Len returns the number of connected clients.
func (b *SSEBroker) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// SnapshotReader returns the latest snapshot, if any.
type SnapshotReader interface {
	Latest() (live.Snapshot, bool)
}

// StreamHandler serves the SSE stream. New clients get the latest snapshot right after
// the ready event.
type StreamHandler struct {
	broker    *SSEBroker
	snapshots SnapshotReader
}

// NewStreamHandler constructs a stream handler. snapshots may be nil.
func NewStreamHandler(broker *SSEBroker, snapshots SnapshotReader) *StreamHandler {
	return &StreamHandler{broker: broker, snapshots: snapshots}
}

// ServeHTTP handles GET /api/v1/stream.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.broker == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.broker.Subscribe()
	defer h.broker.Unsubscribe(ch)

	writeSSE(w, EventReady, []byte("{}"))
	if h.snapshots != nil {
		if snap, ready := h.snapshots.Latest(); ready {
			if payload, err := json.Marshal(snap); err == nil {
				writeSSE(w, EventSnapshot, payload)
			}
		}
	}
	flusher.Flush()

	done := r.Context().Done()
	for {
		select {
		case evt := <-ch:
			writeSSE(w, evt.name, evt.payload)
			flusher.Flush()
		case <-done:
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, payload []byte) {
	_, _ = w.Write([]byte("event: " + event + "\n"))
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n\n"))
}
