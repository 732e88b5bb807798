package configs

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/bridge/pkg/log"
	"github.com/cuemby/bridge/pkg/metrics"
	"github.com/cuemby/bridge/pkg/output"
	"github.com/cuemby/bridge/pkg/types"
)

// Publisher receives config-changed events. Satisfied by *broadcast.Broadcaster.
type Publisher interface {
	Publish(event types.BroadcastEvent)
}

// Manager is the default config collaborator: a registry of named config
// files kept under fsnotify watch. A registered file is re-validated on
// every change; reload outcomes go to the output buffer and, when a
// publisher is wired, to webhook subscribers as config-changed events.
type Manager struct {
	mu      sync.Mutex
	entries map[string]types.ConfigEntry
	watcher *fsnotify.Watcher
	out     output.Sink
	pub     Publisher
	logger  zerolog.Logger
	done    chan struct{}
}

// NewManager creates a config manager and starts its watch loop.
// pub may be nil (no broadcasts).
func NewManager(out output.Sink, pub Publisher) (*Manager, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	m := &Manager{
		entries: make(map[string]types.ConfigEntry),
		watcher: watcher,
		out:     out,
		pub:     pub,
		logger:  log.WithComponent("configs"),
		done:    make(chan struct{}),
	}
	go m.watch()
	return m, nil
}

// Register adds a named config file to the registry and watches it.
// The file must exist and parse as YAML. Re-registering a name replaces
// its path.
func (m *Manager) Register(name, filePath string) error {
	if err := validateFile(filePath); err != nil {
		return fmt.Errorf("config %q: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, exists := m.entries[name]; exists && prev.FilePath != filePath {
		m.removeWatchLocked(prev.FilePath)
	}

	if err := m.watcher.Add(filePath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filePath, err)
	}

	m.entries[name] = types.ConfigEntry{
		Name:       name,
		FilePath:   filePath,
		Registered: time.Now(),
	}
	metrics.ConfigsWatched.Set(float64(len(m.entries)))

	m.logger.Info().Str("name", name).Str("path", filePath).Msg("config registered")
	m.out.Appendf("[config] registered %q (%s)", name, filePath)
	return nil
}

// Unregister removes a named config and stops watching its file
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.entries[name]
	if !exists {
		return fmt.Errorf("config %q not registered", name)
	}

	delete(m.entries, name)
	m.removeWatchLocked(entry.FilePath)
	metrics.ConfigsWatched.Set(float64(len(m.entries)))

	m.out.Appendf("[config] unregistered %q", name)
	return nil
}

// List returns a snapshot of the registered configs
func (m *Manager) List() []types.ConfigEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]types.ConfigEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	return entries
}

// Close stops the watch loop and releases the watcher
func (m *Manager) Close() error {
	close(m.done)
	return m.watcher.Close()
}

// removeWatchLocked drops the file watch unless another entry shares the path
func (m *Manager) removeWatchLocked(filePath string) {
	for _, e := range m.entries {
		if e.FilePath == filePath {
			return
		}
	}
	_ = m.watcher.Remove(filePath)
}

// watch handles fsnotify events until Close
func (m *Manager) watch() {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				m.reload(event.Name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn().Err(err).Msg("watcher error")
		case <-m.done:
			return
		}
	}
}

// reload re-validates a changed file and reports the outcome
func (m *Manager) reload(filePath string) {
	m.mu.Lock()
	var names []string
	for name, e := range m.entries {
		if e.FilePath == filePath {
			names = append(names, name)
		}
	}
	pub := m.pub
	m.mu.Unlock()

	if len(names) == 0 {
		return
	}

	err := validateFile(filePath)
	for _, name := range names {
		if err != nil {
			m.logger.Warn().Err(err).Str("name", name).Msg("config reload failed")
			m.out.Appendf("[config] reload of %q failed: %v", name, err)
			continue
		}

		m.logger.Info().Str("name", name).Msg("config reloaded")
		m.out.Appendf("[config] reloaded %q (%s)", name, filePath)
		if pub != nil {
			pub.Publish(types.NewBroadcastEvent("config-changed", map[string]any{
				"name":     name,
				"filePath": filePath,
			}))
		}
	}
}

// validateFile checks the file exists and parses as YAML
func validateFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var parsed any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	return nil
}
