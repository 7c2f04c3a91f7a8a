package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	live "riftcoach/internal/livegame/domain"
	tips "riftcoach/internal/tips/domain"
	"riftcoach/internal/tips/infrastructure/yamlsource"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
	data   [][]byte
}

func (r *recordingSink) Broadcast(event string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.data = append(r.data, payload)
}

type fakeSnapshots struct {
	mu    sync.Mutex
	snap  live.Snapshot
	ready bool
}

func (f *fakeSnapshots) Latest() (live.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.ready
}

func (f *fakeSnapshots) set(snap live.Snapshot) {
	f.mu.Lock()
	f.snap, f.ready = snap, true
	f.mu.Unlock()
}

func gameAt(seconds float64) live.Snapshot {
	snap := live.EmptySnapshot()
	snap.GameTime = seconds
	snap.GameClock = live.FormatClock(seconds)
	return snap
}

func TestFanoutEncodesOnce(t *testing.T) {
	first, second := &recordingSink{}, &recordingSink{}
	fanout := NewFanout(nil, first, nil, second)

	fanout.PublishSnapshot(context.Background(), gameAt(90))
	fanout.NotifyTip(context.Background(), tips.Tip{ID: "cannon", Title: "Cannon wave in 10s"})

	assert.Equal(t, []string{EventSnapshot, EventTip}, first.events)
	assert.Equal(t, first.events, second.events)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(first.data[0], &decoded))
	assert.Equal(t, "1:30", decoded["gameClock"])
	assert.Len(t, decoded["equipment"], live.EquipmentSlots)
}

func readSSEEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

func TestSSEStreamSendsReadySnapshotAndTips(t *testing.T) {
	broker := NewSSEBroker()
	snapshots := &fakeSnapshots{}
	snapshots.set(gameAt(60))
	server := httptest.NewServer(NewStreamHandler(broker, snapshots))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	event, data := readSSEEvent(t, reader)
	assert.Equal(t, EventReady, event)
	assert.Equal(t, "{}", data)

	event, data = readSSEEvent(t, reader)
	assert.Equal(t, EventSnapshot, event)
	assert.Contains(t, data, `"gameTime":60`)

	require.Eventually(t, func() bool { return broker.Len() == 1 }, time.Second, 5*time.Millisecond)
	broker.Broadcast(EventTip, []byte(`{"id":"dragon_prep_30"}`))
	event, data = readSSEEvent(t, reader)
	assert.Equal(t, EventTip, event)
	assert.Equal(t, `{"id":"dragon_prep_30"}`, data)
}

func TestSSEBrokerDropsForSlowClients(t *testing.T) {
	broker := NewSSEBroker()
	ch := broker.Subscribe()
	for i := 0; i < sseClientBuffer+5; i++ {
		broker.Broadcast(EventSnapshot, []byte("{}"))
	}
	assert.Len(t, ch, sseClientBuffer)
	broker.Unsubscribe(ch)
	assert.Zero(t, broker.Len())
}

func TestSSERejectsPost(t *testing.T) {
	rec := httptest.NewRecorder()
	NewStreamHandler(NewSSEBroker(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stream", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebSocketHubBroadcastsFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, 0)
	go hub.Run(ctx)

	snapshots := &fakeSnapshots{}
	snapshots.set(gameAt(42))
	server := httptest.NewServer(NewWSHandler(hub, DefaultWSConfig(), SnapshotGreeting(snapshots), nil))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var greeting Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, EventSnapshot, greeting.Type)
	assert.Contains(t, string(greeting.Data), `"gameTime":42`)

	require.Eventually(t, func() bool { return hub.Stats().ActiveConnections == 1 }, time.Second, 5*time.Millisecond)
	hub.Broadcast(EventTip, []byte(`{"id":"cannon"}`))

	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, EventTip, frame.Type)
	assert.JSONEq(t, `{"id":"cannon"}`, string(frame.Data))

	conn.Close()
	require.Eventually(t, func() bool { return hub.Stats().ActiveConnections == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-hub.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
}

func TestHubRejectsOverCapacity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil, 1)
	go hub.Run(ctx)
	server := httptest.NewServer(NewWSHandler(hub, DefaultWSConfig(), nil, nil))
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, func() bool { return hub.Stats().ActiveConnections == 1 }, time.Second, 5*time.Millisecond)

	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = second.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 1, hub.Stats().ActiveConnections)
}

type fakeRules struct{ set *tips.RuleSet }

func (f fakeRules) Rules() *tips.RuleSet { return f.set }

type fakeReloader struct {
	status yamlsource.Status
	err    error
	calls  int
}

func (f *fakeReloader) Reload(context.Context) (yamlsource.Status, error) {
	f.calls++
	return f.status, f.err
}

func (f *fakeReloader) Status() yamlsource.Status { return f.status }

type fakePoller struct {
	interval time.Duration
}

func (f *fakePoller) Interval() time.Duration { return f.interval }

func (f *fakePoller) SetInterval(d time.Duration) error {
	if d < 100*time.Millisecond {
		return errors.New("poller: interval too small")
	}
	f.interval = d
	return nil
}

func TestAPISnapshotEndpoint(t *testing.T) {
	snapshots := &fakeSnapshots{}
	mux := (&API{Snapshots: snapshots}).Routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	snapshots.set(gameAt(300))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "5:00", body["gameClock"])
}

func TestAPIRulesAndReload(t *testing.T) {
	set := &tips.RuleSet{Rules: []tips.CompiledRule{{ID: "dragon_prep_30", ModuleID: "objectives", ThrottleSec: 10, Throttle: 10 * time.Second}}}
	reloader := &fakeReloader{status: yamlsource.Status{Dir: "rules", Rules: 1, Problems: []string{}}}
	mux := (&API{Rules: fakeRules{set: set}, Reloader: reloader}).Routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Rules  []map[string]any `json:"rules"`
		Source map[string]any   `json:"source"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rules, 1)
	assert.Equal(t, "dragon_prep_30", body.Rules[0]["id"])
	assert.Equal(t, float64(10), body.Rules[0]["throttleSec"])
	assert.Equal(t, "rules", body.Source["dir"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rules/reload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/rules/reload", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, reloader.calls)

	reloader.err = yamlsource.ErrNoDocuments
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/rules/reload", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPIPollInterval(t *testing.T) {
	poller := &fakePoller{interval: time.Second}
	mux := (&API{Poller: poller}).Routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/poll-interval", strings.NewReader(`{"intervalMs":250}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"intervalMs":250}`, rec.Body.String())
	assert.Equal(t, 250*time.Millisecond, poller.interval)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/poll-interval", strings.NewReader(`{"intervalMs":5}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/poll-interval", strings.NewReader(`nope`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/poll-interval", nil))
	assert.JSONEq(t, `{"intervalMs":250}`, rec.Body.String())
}

func TestAPIHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	(&API{}).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
