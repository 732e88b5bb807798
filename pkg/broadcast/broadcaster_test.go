package broadcast

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/bridge/pkg/output"
	"github.com/cuemby/bridge/pkg/subscribers"
	"github.com/cuemby/bridge/pkg/types"
)

// hookRecorder collects webhook payloads delivered to an httptest server
type hookRecorder struct {
	mu       sync.Mutex
	received []types.BroadcastEvent
	gotOne   chan struct{}
}

func newHookRecorder() *hookRecorder {
	return &hookRecorder{gotOne: make(chan struct{}, 100)}
}

func (h *hookRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var evt types.BroadcastEvent
	_ = json.Unmarshal(body, &evt)

	h.mu.Lock()
	h.received = append(h.received, evt)
	h.mu.Unlock()
	h.gotOne <- struct{}{}
}

func (h *hookRecorder) events() []types.BroadcastEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]types.BroadcastEvent, len(h.received))
	copy(out, h.received)
	return out
}

func (h *hookRecorder) waitFor(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-h.gotOne:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d of %d", i+1, n)
		}
	}
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	rec1 := newHookRecorder()
	rec2 := newHookRecorder()
	srv1 := httptest.NewServer(rec1)
	srv2 := httptest.NewServer(rec2)
	defer srv1.Close()
	defer srv2.Close()

	reg := subscribers.NewRegistry()
	reg.Add(srv1.URL)
	reg.Add(srv2.URL)

	out := output.NewBuffer(100)
	b := New(reg, out)

	b.Publish(types.NewBroadcastEvent("terminal-changed", map[string]any{
		"name": "zsh",
	}))

	rec1.waitFor(t, 1)
	rec2.waitFor(t, 1)

	require.Len(t, rec1.events(), 1)
	assert.Equal(t, "terminal-changed", rec1.events()[0].Event)
	assert.Equal(t, "zsh", rec1.events()[0].Data["name"])
	assert.NotZero(t, rec1.events()[0].Timestamp)
	require.Len(t, rec2.events(), 1)
}

// One unreachable subscriber: the other two still receive both events, the
// failure lands in the output buffer, and Publish never surfaces an error
func TestPublishIsolatesFailingSubscriber(t *testing.T) {
	rec1 := newHookRecorder()
	rec2 := newHookRecorder()
	srv1 := httptest.NewServer(rec1)
	srv2 := httptest.NewServer(rec2)
	defer srv1.Close()
	defer srv2.Close()

	// A server closed before use yields a reliably unreachable URL
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	reg := subscribers.NewRegistry()
	reg.Add(srv1.URL)
	reg.Add(srv2.URL)
	reg.Add(deadURL)

	out := output.NewBuffer(100)
	b := New(reg, out)

	b.Publish(types.NewBroadcastEvent("file-changed", nil))
	b.Publish(types.NewBroadcastEvent("config-changed", nil))

	rec1.waitFor(t, 2)
	rec2.waitFor(t, 2)

	assert.Len(t, rec1.events(), 2)
	assert.Len(t, rec2.events(), 2)

	// Failure is recorded in output history (delivery is async; poll briefly)
	deadline := time.Now().Add(2 * time.Second)
	for {
		joined := strings.Join(out.Tail(100), "\n")
		if strings.Contains(joined, "[broadcast] failed to deliver") &&
			strings.Contains(joined, deadURL) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("failure never recorded in output buffer; lines: %v", out.Tail(100))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPublishRecordsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := subscribers.NewRegistry()
	reg.Add(srv.URL)

	out := output.NewBuffer(100)
	b := New(reg, out)

	b.Publish(types.NewBroadcastEvent("state-changed", nil))

	deadline := time.Now().Add(2 * time.Second)
	for {
		joined := strings.Join(out.Tail(100), "\n")
		if strings.Contains(joined, "HTTP 500") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("error status never recorded; lines: %v", out.Tail(100))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPublishWithNoSubscribers(t *testing.T) {
	reg := subscribers.NewRegistry()
	out := output.NewBuffer(100)
	b := New(reg, out)

	// Must not panic or block
	b.Publish(types.NewBroadcastEvent("noop", nil))
}

func TestPublishSnapshotsSubscriberSet(t *testing.T) {
	rec := newHookRecorder()
	srv := httptest.NewServer(rec)
	defer srv.Close()

	reg := subscribers.NewRegistry()
	out := output.NewBuffer(100)
	b := New(reg, out)

	// Subscriber added after the broadcast started is not included
	b.Publish(types.NewBroadcastEvent("early", nil))
	reg.Add(srv.URL)
	b.Publish(types.NewBroadcastEvent("late", nil))

	rec.waitFor(t, 1)
	events := rec.events()
	require.Len(t, events, 1)
	assert.Equal(t, "late", events[0].Event)
}
