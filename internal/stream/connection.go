package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSConfig holds WebSocket timing settings.
type WSConfig struct {
	PongWait       time.Duration
	PingPeriod     time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// DefaultWSConfig returns the standard keepalive settings.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 512,
	}
}

// Connection is one WebSocket client. The stream is push-only; inbound messages are read
// only to observe pongs and disconnects.
type Connection struct {
	hub    *Hub
	conn   *websocket.Conn
	remote string
	send   chan []byte
	cfg    WSConfig
	logger *zap.Logger
	done   chan struct{}
}

func newConnection(hub *Hub, conn *websocket.Conn, remote string, cfg WSConfig, logger *zap.Logger) *Connection {
	return &Connection{
		hub:    hub,
		conn:   conn,
		remote: remote,
		send:   make(chan []byte, 256),
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (c *Connection) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", zap.String("remote", c.remote), zap.Error(err))
			}
			return
		}
	}
}

// writePump writes one frame per message; frames are never coalesced so each message stays
// a single JSON document.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close closes the connection once.
func (c *Connection) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
		c.conn.Close()
	}
}

// WSHandler upgrades requests and registers the connection with the hub.
type WSHandler struct {
	hub      *Hub
	cfg      WSConfig
	upgrader websocket.Upgrader
	greeting func() []byte
	logger   *zap.Logger
}

// NewWSHandler constructs a WSHandler. greeting, when set, produces a frame sent to each
// new client before any broadcast.
func NewWSHandler(hub *Hub, cfg WSConfig, greeting func() []byte, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Overlays run from file:// or localhost origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		greeting: greeting,
		logger:   logger.Named("ws"),
	}
}

// ServeHTTP handles GET /api/v1/ws.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.hub == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newConnection(h.hub, conn, r.RemoteAddr, h.cfg, h.logger)
	if h.greeting != nil {
		if frame := h.greeting(); frame != nil {
			c.send <- frame
		}
	}
	select {
	case h.hub.register <- c:
	case <-h.hub.done:
		c.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
