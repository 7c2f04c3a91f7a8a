package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	tips "riftcoach/internal/tips/domain"
	"riftcoach/internal/tips/infrastructure/yamlsource"
)

// RuleView exposes the active rule set.
type RuleView interface {
	Rules() *tips.RuleSet
}

// RuleReloader loads rules on demand.
type RuleReloader interface {
	Reload(ctx context.Context) (yamlsource.Status, error)
	Status() yamlsource.Status
}

// IntervalSetter controls the poll interval.
type IntervalSetter interface {
	Interval() time.Duration
	SetInterval(d time.Duration) error
}

// API wires the HTTP surface. Optional dependencies may be nil; their routes answer 503.
type API struct {
	Snapshots SnapshotReader
	Rules     RuleView
	Reloader  RuleReloader
	Poller    IntervalSetter
	Broker    *SSEBroker
	Hub       *Hub
	WSConfig  WSConfig
	Logger    *zap.Logger
}

// Routes registers every endpoint on a new mux.
func (a *API) Routes() *http.ServeMux {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/api/v1/snapshot", &snapshotHandler{snapshots: a.Snapshots})
	mux.Handle("/api/v1/stream", NewStreamHandler(a.Broker, a.Snapshots))
	mux.Handle("/api/v1/ws", NewWSHandler(a.Hub, a.WSConfig, SnapshotGreeting(a.Snapshots), logger))
	mux.Handle("/api/v1/rules", &rulesHandler{rules: a.Rules, reloader: a.Reloader})
	mux.Handle("/api/v1/rules/reload", &reloadHandler{reloader: a.Reloader, logger: logger.Named("api")})
	mux.Handle("/api/v1/poll-interval", &intervalHandler{poller: a.Poller})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// SnapshotGreeting returns a frame builder carrying the latest snapshot, or nil when no
// snapshot exists yet.
func SnapshotGreeting(snapshots SnapshotReader) func() []byte {
	if snapshots == nil {
		return nil
	}
	return func() []byte {
		snap, ready := snapshots.Latest()
		if !ready {
			return nil
		}
		payload, err := json.Marshal(snap)
		if err != nil {
			return nil
		}
		frame, err := json.Marshal(Frame{Type: EventSnapshot, Data: payload})
		if err != nil {
			return nil
		}
		return frame
	}
}

type snapshotHandler struct {
	snapshots SnapshotReader
}

// ServeHTTP handles GET /api/v1/snapshot. Before the first poll it answers 503.
func (h *snapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.snapshots == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	snap, ready := h.snapshots.Latest()
	if !ready {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type rulesResponse struct {
	Rules  []tips.CompiledRule `json:"rules"`
	Source *yamlsource.Status  `json:"source,omitempty"`
}

type rulesHandler struct {
	rules    RuleView
	reloader RuleReloader
}

// ServeHTTP handles GET /api/v1/rules.
func (h *rulesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.rules == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	resp := rulesResponse{Rules: []tips.CompiledRule{}}
	if set := h.rules.Rules(); set != nil {
		resp.Rules = append(resp.Rules, set.Rules...)
	}
	if h.reloader != nil {
		status := h.reloader.Status()
		resp.Source = &status
	}
	writeJSON(w, http.StatusOK, resp)
}

type reloadHandler struct {
	reloader RuleReloader
	logger   *zap.Logger
}

// ServeHTTP handles POST /api/v1/rules/reload.
func (h *reloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.reloader == nil {
		http.Error(w, "rule source not configured", http.StatusServiceUnavailable)
		return
	}
	status, err := h.reloader.Reload(r.Context())
	if err != nil {
		h.logger.Warn("manual rule reload failed", zap.Error(err))
		writeJSON(w, http.StatusUnprocessableEntity, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type intervalRequest struct {
	IntervalMs int64 `json:"intervalMs"`
}

type intervalHandler struct {
	poller IntervalSetter
}

// ServeHTTP handles GET and PUT /api/v1/poll-interval.
func (h *intervalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, intervalRequest{IntervalMs: h.poller.Interval().Milliseconds()})
	case http.MethodPut:
		var req intervalRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if err := h.poller.SetInterval(time.Duration(req.IntervalMs) * time.Millisecond); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, intervalRequest{IntervalMs: h.poller.Interval().Milliseconds()})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
