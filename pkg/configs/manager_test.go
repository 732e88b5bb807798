package configs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/bridge/pkg/output"
	"github.com/cuemby/bridge/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func newTestManager(t *testing.T) (*Manager, *output.Buffer) {
	t.Helper()
	out := output.NewBuffer(100)
	m, err := NewManager(out, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, out
}

func TestRegisterAndList(t *testing.T) {
	m, _ := newTestManager(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", "key: value\n")

	require.NoError(t, m.Register("app", path))

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, "app", list[0].Name)
	assert.Equal(t, path, list[0].FilePath)
	assert.False(t, list[0].Registered.IsZero())
}

func TestRegisterMissingFile(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.Register("ghost", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRegisterInvalidYAML(t *testing.T) {
	m, _ := newTestManager(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.yaml", "key: [unclosed\n  - item\n b:\n")

	err := m.Register("broken", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML")
}

func TestReRegisterReplacesPath(t *testing.T) {
	m, _ := newTestManager(t)
	dir := t.TempDir()
	first := writeFile(t, dir, "a.yaml", "a: 1\n")
	second := writeFile(t, dir, "b.yaml", "b: 2\n")

	require.NoError(t, m.Register("app", first))
	require.NoError(t, m.Register("app", second))

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, second, list[0].FilePath)
}

func TestUnregister(t *testing.T) {
	m, _ := newTestManager(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", "key: value\n")

	require.NoError(t, m.Register("app", path))
	require.NoError(t, m.Unregister("app"))
	assert.Empty(t, m.List())

	err := m.Unregister("app")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func waitForLine(t *testing.T, out *output.Buffer, substr string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		if strings.Contains(strings.Join(out.Tail(100), "\n"), substr) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("line containing %q never appeared; lines: %v", substr, out.Tail(100))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestReloadOnChange(t *testing.T) {
	m, out := newTestManager(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", "version: 1\n")

	require.NoError(t, m.Register("app", path))

	writeFile(t, dir, "app.yaml", "version: 2\n")
	waitForLine(t, out, `reloaded "app"`)
}

func TestReloadFailureRecorded(t *testing.T) {
	m, out := newTestManager(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", "version: 1\n")

	require.NoError(t, m.Register("app", path))

	writeFile(t, dir, "app.yaml", "key: [unclosed\n  - item\n b:\n")
	waitForLine(t, out, `reload of "app" failed`)
}

type capturePublisher struct {
	ch chan types.BroadcastEvent
}

func (c *capturePublisher) Publish(e types.BroadcastEvent) {
	c.ch <- e
}

func TestReloadBroadcastsEvent(t *testing.T) {
	out := output.NewBuffer(100)
	pub := &capturePublisher{ch: make(chan types.BroadcastEvent, 10)}
	m, err := NewManager(out, pub)
	require.NoError(t, err)
	defer m.Close()

	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", "version: 1\n")
	require.NoError(t, m.Register("app", path))

	writeFile(t, dir, "app.yaml", "version: 2\n")

	select {
	case evt := <-pub.ch:
		assert.Equal(t, "config-changed", evt.Event)
		assert.Equal(t, "app", evt.Data["name"])
	case <-time.After(3 * time.Second):
		t.Fatal("config-changed event never published")
	}
}
