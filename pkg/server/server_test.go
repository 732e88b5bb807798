package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/bridge/pkg/dispatch"
	"github.com/cuemby/bridge/pkg/host"
	"github.com/cuemby/bridge/pkg/output"
	"github.com/cuemby/bridge/pkg/subscribers"
	"github.com/cuemby/bridge/pkg/types"
)

// newTestServer starts a server on an ephemeral port with the real host
// surface behind the dispatcher
func newTestServer(t *testing.T, opts dispatch.Options) *Server {
	t.Helper()

	out := output.NewBuffer(500)
	reg := subscribers.NewRegistry()
	h := host.New(t.TempDir())
	d := dispatch.NewDispatcher(h, reg, out, opts)

	s := New(0, d, out)
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

// roundTrip sends raw bytes and decodes the single response
func roundTrip(t *testing.T, port int, raw []byte) types.Response {
	t.Helper()

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(raw)
	require.NoError(t, err)

	var resp types.Response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	return resp
}

func call(t *testing.T, port int, method string, params map[string]any) types.Response {
	t.Helper()
	raw, err := json.Marshal(types.Request{Method: method, Params: params})
	require.NoError(t, err)
	return roundTrip(t, port, raw)
}

func TestEvalEndToEnd(t *testing.T) {
	s := newTestServer(t, dispatch.Options{})

	resp := call(t, s.Port(), "eval", map[string]any{"code": "40+2"})

	require.True(t, resp.OK, "error: %s", resp.Error)
	assert.Equal(t, float64(42), resp.Result)
}

func TestStatusEndToEnd(t *testing.T) {
	s := newTestServer(t, dispatch.Options{})

	resp := call(t, s.Port(), "status", nil)

	require.True(t, resp.OK)
	result := resp.Result.(map[string]any)
	assert.Equal(t, float64(s.Port()), result["port"])
	assert.Contains(t, result, "uptimeSeconds")
}

// A request split across multiple transport writes is reassembled by the
// streaming decoder; the client does not need to half-close first
func TestSplitWriteRequest(t *testing.T) {
	s := newTestServer(t, dispatch.Options{})

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", s.Port()))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"method":"ev`))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = conn.Write([]byte(`al","params":{"code":"1+1"}}`))
	require.NoError(t, err)

	var resp types.Response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	require.True(t, resp.OK)
	assert.Equal(t, float64(2), resp.Result)
}

func TestMalformedJSON(t *testing.T) {
	s := newTestServer(t, dispatch.Options{})

	resp := roundTrip(t, s.Port(), []byte(`{this is not json`))

	require.False(t, resp.OK)
	assert.Contains(t, resp.Error, "invalid JSON")
}

func TestUnknownMethodOverWire(t *testing.T) {
	s := newTestServer(t, dispatch.Options{})

	resp := call(t, s.Port(), "bogus", nil)

	require.False(t, resp.OK)
	assert.Contains(t, resp.Error, `unknown method "bogus"`)
	assert.Contains(t, resp.Error, "eval")
	assert.Contains(t, resp.Error, "getOutput")
}

// Exactly one response object per connection, then EOF
func TestOneResponsePerConnection(t *testing.T) {
	s := newTestServer(t, dispatch.Options{})

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", s.Port()))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"method":"listSubscribers"}`))
	require.NoError(t, err)

	dec := json.NewDecoder(conn)
	var first types.Response
	require.NoError(t, dec.Decode(&first))
	assert.True(t, first.OK)

	var second types.Response
	err = dec.Decode(&second)
	assert.ErrorIs(t, err, io.EOF, "expected connection closed after one response")
}

// Bytes trailing the first complete JSON object are ignored
func TestTrailingBytesIgnored(t *testing.T) {
	s := newTestServer(t, dispatch.Options{})

	resp := roundTrip(t, s.Port(), []byte(`{"method":"listSubscribers"} trailing garbage`))

	assert.True(t, resp.OK)
}

func TestSubscribeOverWire(t *testing.T) {
	s := newTestServer(t, dispatch.Options{})

	resp := call(t, s.Port(), "subscribe", map[string]any{"url": "http://localhost:9000/hook"})
	require.True(t, resp.OK)
	assert.Equal(t, float64(1), resp.Result.(map[string]any)["count"])

	resp = call(t, s.Port(), "subscribe", nil)
	require.False(t, resp.OK)
	assert.Equal(t, "url parameter required", resp.Error)
}

func TestGetOutputSeesProtocolTraces(t *testing.T) {
	s := newTestServer(t, dispatch.Options{})

	call(t, s.Port(), "status", nil)
	resp := call(t, s.Port(), "getOutput", nil)

	require.True(t, resp.OK)
	result := resp.Result.(map[string]any)
	lines := result["lines"].([]any)
	require.NotEmpty(t, lines)

	var sawServerTrace, sawDispatchTrace bool
	for _, l := range lines {
		line := l.(string)
		if line == fmt.Sprintf("[server] listening on port %d", s.Port()) {
			sawServerTrace = true
		}
		if line == "[dispatch] -> status" {
			sawDispatchTrace = true
		}
	}
	assert.True(t, sawServerTrace, "listening trace missing: %v", lines)
	assert.True(t, sawDispatchTrace, "dispatch trace missing: %v", lines)
}

func TestPortConflict(t *testing.T) {
	s := newTestServer(t, dispatch.Options{})

	out := output.NewBuffer(100)
	reg := subscribers.NewRegistry()
	d := dispatch.NewDispatcher(host.New(t.TempDir()), reg, out, dispatch.Options{})
	second := New(s.Port(), d, out)

	err := second.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPortInUse), "expected ErrPortInUse, got %v", err)
	assert.Contains(t, err.Error(), fmt.Sprint(s.Port()))
}

func TestStopIsIdempotentAndReleasesPort(t *testing.T) {
	out := output.NewBuffer(100)
	reg := subscribers.NewRegistry()
	d := dispatch.NewDispatcher(host.New(t.TempDir()), reg, out, dispatch.Options{})

	s := New(0, d, out)
	require.NoError(t, s.Start())
	port := s.Port()

	s.Stop()
	s.Stop() // second stop is a no-op

	// Port fully released: a fresh server can bind it immediately
	replacement := New(port, d, out)
	require.NoError(t, replacement.Start())
	replacement.Stop()
}

func TestStopBeforeStart(t *testing.T) {
	out := output.NewBuffer(100)
	reg := subscribers.NewRegistry()
	d := dispatch.NewDispatcher(host.New(t.TempDir()), reg, out, dispatch.Options{})

	s := New(0, d, out)
	s.Stop() // never started; must not panic or block
}

func TestReadyProgressEvent(t *testing.T) {
	out := output.NewBuffer(100)
	reg := subscribers.NewRegistry()
	d := dispatch.NewDispatcher(host.New(t.TempDir()), reg, out, dispatch.Options{})

	var events []types.ProgressEvent
	s := New(0, d, out, WithProgress(func(e types.ProgressEvent) {
		events = append(events, e)
	}))
	require.NoError(t, s.Start())
	defer s.Stop()

	require.Len(t, events, 1)
	assert.Equal(t, types.ProgressReady, events[0].Kind)
	assert.Equal(t, s.Port(), events[0].Port)
}

func TestRestartHookRunsAfterResponse(t *testing.T) {
	restarted := make(chan struct{})
	s := newTestServer(t, dispatch.Options{
		Restart: func() { close(restarted) },
	})

	resp := call(t, s.Port(), "restartExtension", nil)
	require.True(t, resp.OK)
	assert.Equal(t, true, resp.Result.(map[string]any)["restarting"])

	select {
	case <-restarted:
	case <-time.After(2 * time.Second):
		t.Fatal("restart hook never ran")
	}
}
