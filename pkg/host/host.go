package host

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/bridge/pkg/log"
	"github.com/cuemby/bridge/pkg/types"
)

// Publisher receives state-change events from the host surface.
// It is satisfied by *broadcast.Broadcaster.
type Publisher interface {
	Publish(event types.BroadcastEvent)
}

// Host is the default host capability surface: it tracks the workspace,
// active editor and terminals reported by the embedding application, and
// executes scripts against that state through an embedded Lua interpreter.
type Host struct {
	mu           sync.RWMutex
	workspace    string
	activeEditor string
	terminals    map[string]types.TerminalInfo
	publisher    Publisher
	logger       zerolog.Logger
}

// New creates a host surface rooted at the given workspace path
func New(workspace string) *Host {
	return &Host{
		workspace: workspace,
		terminals: make(map[string]types.TerminalInfo),
		logger:    log.WithComponent("host"),
	}
}

// SetPublisher wires state-change broadcasts. May be nil (no broadcasts).
func (h *Host) SetPublisher(p Publisher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publisher = p
}

// Status returns a snapshot of the host state
func (h *Host) Status() types.StatusSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	terminals := make([]types.TerminalInfo, 0, len(h.terminals))
	for _, t := range h.terminals {
		terminals = append(terminals, t)
	}
	sort.Slice(terminals, func(i, j int) bool { return terminals[i].Name < terminals[j].Name })

	return types.StatusSnapshot{
		Terminals:    terminals,
		ActiveEditor: h.activeEditor,
		Workspace:    h.workspace,
	}
}

// SetActiveEditor records the editor currently in focus
func (h *Host) SetActiveEditor(name string) {
	h.mu.Lock()
	h.activeEditor = name
	p := h.publisher
	h.mu.Unlock()

	if p != nil {
		p.Publish(types.NewBroadcastEvent("editor-changed", map[string]any{
			"name": name,
		}))
	}
}

// TrackTerminal registers or updates a terminal by name
func (h *Host) TrackTerminal(name string, pid int) {
	h.mu.Lock()
	h.terminals[name] = types.TerminalInfo{Name: name, ProcessID: pid}
	p := h.publisher
	h.mu.Unlock()

	h.logger.Debug().Str("terminal", name).Int("pid", pid).Msg("terminal tracked")
	if p != nil {
		p.Publish(types.NewBroadcastEvent("terminal-changed", map[string]any{
			"name":      name,
			"processId": pid,
		}))
	}
}

// ReleaseTerminal drops a tracked terminal. Unknown names are a no-op.
func (h *Host) ReleaseTerminal(name string) {
	h.mu.Lock()
	_, known := h.terminals[name]
	delete(h.terminals, name)
	p := h.publisher
	h.mu.Unlock()

	if known && p != nil {
		p.Publish(types.NewBroadcastEvent("terminal-closed", map[string]any{
			"name": name,
		}))
	}
}

// Workspace returns the workspace path
func (h *Host) Workspace() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.workspace
}
