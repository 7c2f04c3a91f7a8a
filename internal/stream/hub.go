package stream

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"riftcoach/internal/observability/metrics"
)

// Hub maintains the active WebSocket connections and broadcasts frames to them.
type Hub struct {
	connections map[*Connection]struct{}
	mu          sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan []byte

	maxConnections int
	framesSent     atomic.Int64
	framesDropped  atomic.Int64

	logger *zap.Logger
	done   chan struct{}
}

// NewHub creates a Hub. maxConnections <= 0 means unlimited.
func NewHub(logger *zap.Logger, maxConnections int) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		connections:    make(map[*Connection]struct{}),
		register:       make(chan *Connection, 16),
		unregister:     make(chan *Connection, 16),
		broadcast:      make(chan []byte, 256),
		maxConnections: maxConnections,
		logger:         logger.Named("ws-hub"),
		done:           make(chan struct{}),
	}
}

// Run is the hub's main loop. It closes every connection when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case conn := <-h.register:
			h.add(conn)
		case conn := <-h.unregister:
			h.remove(conn)
		case frame := <-h.broadcast:
			h.fanout(frame)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Broadcast implements Sink. The frame is dropped when the hub is backed up.
func (h *Hub) Broadcast(event string, payload []byte) {
	if h == nil {
		return
	}
	frame, err := json.Marshal(Frame{Type: event, Data: payload})
	if err != nil {
		h.logger.Warn("frame encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- frame:
	default:
		h.framesDropped.Add(1)
	}
}

func (h *Hub) add(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.maxConnections > 0 && len(h.connections) >= h.maxConnections {
		h.logger.Warn("max connections reached, rejecting client", zap.String("remote", conn.remote))
		go conn.Close()
		return
	}
	h.connections[conn] = struct{}{}
	metrics.AddStreamSubscribers("ws", 1)
	h.logger.Debug("client connected", zap.String("remote", conn.remote), zap.Int("connections", len(h.connections)))
}

func (h *Hub) remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn]; !ok {
		return
	}
	delete(h.connections, conn)
	close(conn.send)
	metrics.AddStreamSubscribers("ws", -1)
	h.logger.Debug("client disconnected", zap.String("remote", conn.remote), zap.Int("connections", len(h.connections)))
}

func (h *Hub) fanout(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.connections {
		select {
		case conn.send <- frame:
			h.framesSent.Add(1)
		default:
			h.framesDropped.Add(1)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.connections {
		conn.Close()
		metrics.AddStreamSubscribers("ws", -1)
	}
	h.connections = make(map[*Connection]struct{})
}

// HubStats is a point-in-time view of the hub.
type HubStats struct {
	ActiveConnections int   `json:"activeConnections"`
	FramesSent        int64 `json:"framesSent"`
	FramesDropped     int64 `json:"framesDropped"`
}

// Stats returns hub statistics.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HubStats{
		ActiveConnections: len(h.connections),
		FramesSent:        h.framesSent.Load(),
		FramesDropped:     h.framesDropped.Load(),
	}
}
