package dispatch

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/bridge/pkg/log"
	"github.com/cuemby/bridge/pkg/metrics"
	"github.com/cuemby/bridge/pkg/output"
	"github.com/cuemby/bridge/pkg/subscribers"
	"github.com/cuemby/bridge/pkg/types"
)

// Host is the capability surface commands delegate to
type Host interface {
	Status() types.StatusSnapshot
	Eval(code string, sink output.Sink) (any, error)
}

// Webview opens application panels. A nil Webview on the dispatcher means
// the collaborator is not initialized.
type Webview interface {
	OpenView(opts types.ViewOptions) error
}

// Configs is the config collaborator surface
type Configs interface {
	Register(name, filePath string) error
	Unregister(name string) error
	List() []types.ConfigEntry
}

// Result pairs the wire response with an optional hook the connection
// handler runs after the response has been written and the socket closed.
// Used by restartExtension: the acknowledgement must reach the client
// before the restart happens.
type Result struct {
	Response types.Response
	After    func()
}

// Dispatcher owns the fixed command table. Every handler validates its
// parameters, performs its action (possibly via a collaborator), and
// returns a Result; no failure escapes Dispatch as a panic or error.
type Dispatcher struct {
	host     Host
	webview  Webview
	configs  Configs
	registry *subscribers.Registry
	out      *output.Buffer
	restart  func()
	progress func(types.ProgressEvent)
	started  time.Time
	port     int
	logger   zerolog.Logger
}

// Options carries the optional dispatcher collaborators
type Options struct {
	// Webview opens panels; nil means not initialized
	Webview Webview
	// Configs is the config registry collaborator; nil means not initialized
	Configs Configs
	// Restart is scheduled after a restartExtension response is sent
	Restart func()
	// Progress observes executing transitions; nil disables emission
	Progress func(types.ProgressEvent)
}

// NewDispatcher creates a dispatcher over the given owned state
func NewDispatcher(host Host, registry *subscribers.Registry, out *output.Buffer, opts Options) *Dispatcher {
	return &Dispatcher{
		host:     host,
		webview:  opts.Webview,
		configs:  opts.Configs,
		registry: registry,
		out:      out,
		restart:  opts.Restart,
		progress: opts.Progress,
		started:  time.Now(),
		logger:   log.WithComponent("dispatch"),
	}
}

// SetServerInfo records the bound port and listen time for status reporting.
// Called by the server when it starts.
func (d *Dispatcher) SetServerInfo(port int, started time.Time) {
	d.port = port
	d.started = started
}

// Dispatch executes one request against the command table. It always
// returns a well-formed Result: validation failures, unknown methods,
// collaborator errors and even handler panics become {ok:false} responses.
func (d *Dispatcher) Dispatch(req types.Request) (res Result) {
	timer := metrics.NewTimer()
	d.out.Appendf("[dispatch] -> %s", req.Method)

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Str("method", req.Method).Interface("panic", r).Msg("handler panicked")
			res = Result{Response: types.ErrResponse(fmt.Sprintf("internal error: %v", r))}
		}
		status := "ok"
		if !res.Response.OK {
			status = "error"
		}
		metrics.RequestsTotal.WithLabelValues(req.Method, status).Inc()
		timer.ObserveDurationVec(metrics.RequestDuration, req.Method)
		d.out.Appendf("[dispatch] <- %s %s", req.Method, status)
	}()

	cmd, err := parseCommand(req)
	if err != nil {
		return Result{Response: types.ErrResponse(err.Error())}
	}

	if d.progress != nil {
		d.progress(types.ProgressEvent{Kind: types.ProgressExecuting, Method: cmd.method()})
	}
	d.logger.Debug().Str("method", cmd.method()).Msg("executing command")

	switch c := cmd.(type) {
	case statusCmd:
		return d.handleStatus()
	case evalCmd:
		return d.handleEval(c)
	case webviewCmd:
		return d.handleWebview(c)
	case registerConfigCmd:
		return d.handleRegisterConfig(c)
	case unregisterConfigCmd:
		return d.handleUnregisterConfig(c)
	case listConfigsCmd:
		return d.handleListConfigs()
	case subscribeCmd:
		return d.handleSubscribe(c)
	case unsubscribeCmd:
		return d.handleUnsubscribe(c)
	case listSubscribersCmd:
		return d.handleListSubscribers()
	case getOutputCmd:
		return d.handleGetOutput(c)
	case restartCmd:
		return d.handleRestart()
	default:
		// Unreachable: parseCommand only emits the variants above
		return Result{Response: types.ErrResponse(unknownMethodError(req.Method).Error())}
	}
}

func (d *Dispatcher) handleStatus() Result {
	snap := d.host.Status()
	return okResult(map[string]any{
		"terminals":     snap.Terminals,
		"activeEditor":  snap.ActiveEditor,
		"workspace":     snap.Workspace,
		"uptimeSeconds": int(time.Since(d.started).Seconds()),
		"port":          d.port,
		"subscribers":   d.registry.Count(),
	})
}

func (d *Dispatcher) handleEval(c evalCmd) Result {
	value, err := d.host.Eval(c.Code, d.out)
	if err != nil {
		return errResult("eval error: %v", err)
	}
	return okResult(value)
}

func (d *Dispatcher) handleWebview(c webviewCmd) Result {
	if d.webview == nil {
		return errResult("webview manager not initialized")
	}
	if err := d.webview.OpenView(c.Options); err != nil {
		return errResult("failed to open view: %v", err)
	}
	return okResult(map[string]any{"opened": c.Options.ViewName})
}

func (d *Dispatcher) handleRegisterConfig(c registerConfigCmd) Result {
	if d.configs == nil {
		return errResult("config manager not initialized")
	}
	if err := d.configs.Register(c.Name, c.FilePath); err != nil {
		return errResult("%v", err)
	}
	return okResult(map[string]any{"registered": c.Name})
}

func (d *Dispatcher) handleUnregisterConfig(c unregisterConfigCmd) Result {
	if d.configs == nil {
		return errResult("config manager not initialized")
	}
	if err := d.configs.Unregister(c.Name); err != nil {
		return errResult("%v", err)
	}
	return okResult(map[string]any{"unregistered": c.Name})
}

func (d *Dispatcher) handleListConfigs() Result {
	if d.configs == nil {
		return errResult("config manager not initialized")
	}
	return okResult(map[string]any{"configs": d.configs.List()})
}

func (d *Dispatcher) handleSubscribe(c subscribeCmd) Result {
	d.registry.Add(c.URL)
	return okResult(map[string]any{
		"count":       d.registry.Count(),
		"subscribers": d.registry.List(),
	})
}

func (d *Dispatcher) handleUnsubscribe(c unsubscribeCmd) Result {
	d.registry.Remove(c.URL)
	return okResult(map[string]any{
		"count":       d.registry.Count(),
		"subscribers": d.registry.List(),
	})
}

func (d *Dispatcher) handleListSubscribers() Result {
	return okResult(map[string]any{
		"count":       d.registry.Count(),
		"subscribers": d.registry.List(),
	})
}

func (d *Dispatcher) handleGetOutput(c getOutputCmd) Result {
	return okResult(map[string]any{
		"lines": d.out.Tail(c.Lines),
		"total": d.out.Len(),
	})
}

func (d *Dispatcher) handleRestart() Result {
	d.out.Appendf("[dispatch] restart scheduled")
	return Result{
		Response: types.OkResponse(map[string]any{"restarting": true}),
		After:    d.restart,
	}
}

func okResult(result any) Result {
	return Result{Response: types.OkResponse(result)}
}

func errResult(format string, args ...any) Result {
	return Result{Response: types.ErrResponse(fmt.Sprintf(format, args...))}
}
