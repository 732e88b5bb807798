package types

import "time"

// Request is the single JSON object a client sends per connection.
type Request struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// Response is the single JSON object written back before the connection is
// closed. Exactly one of Result or Error is meaningful, selected by OK.
type Response struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OkResponse builds a success response carrying result
func OkResponse(result any) Response {
	return Response{OK: true, Result: result}
}

// ErrResponse builds a failure response carrying an error message
func ErrResponse(msg string) Response {
	return Response{OK: false, Error: msg}
}

// BroadcastEvent is the payload POSTed to every webhook subscriber.
// Immutable once constructed; a subscriber added after a broadcast started
// is never included in that broadcast.
type BroadcastEvent struct {
	Event     string         `json:"event"`
	Timestamp int64          `json:"timestamp"` // epoch milliseconds
	Data      map[string]any `json:"data,omitempty"`
}

// NewBroadcastEvent stamps an event with the current time
func NewBroadcastEvent(event string, data map[string]any) BroadcastEvent {
	return BroadcastEvent{
		Event:     event,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// ProgressKind identifies a server lifecycle transition
type ProgressKind string

const (
	ProgressExecuting ProgressKind = "executing"
	ProgressReady     ProgressKind = "ready"
)

// ProgressEvent is an observability hook emitted synchronously at the
// relevant transition; it carries no stored state.
type ProgressEvent struct {
	Kind   ProgressKind
	Method string // set for ProgressExecuting
	Port   int    // set for ProgressReady
}

// TerminalInfo describes one terminal tracked by the host surface
type TerminalInfo struct {
	Name      string `json:"name"`
	ProcessID int    `json:"processId,omitempty"`
}

// StatusSnapshot is the host-side state returned by the status method
type StatusSnapshot struct {
	Terminals    []TerminalInfo `json:"terminals"`
	ActiveEditor string         `json:"activeEditor,omitempty"`
	Workspace    string         `json:"workspace,omitempty"`
}

// ViewOptions selects the panel a webview collaborator should open
type ViewOptions struct {
	ViewName   string `json:"viewName"`
	Title      string `json:"title,omitempty"`
	CustomPath string `json:"customPath,omitempty"`
}

// ConfigEntry is one named config file registered with the config collaborator
type ConfigEntry struct {
	Name       string    `json:"name"`
	FilePath   string    `json:"filePath"`
	Registered time.Time `json:"registered"`
}
