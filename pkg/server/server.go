package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/bridge/pkg/dispatch"
	"github.com/cuemby/bridge/pkg/log"
	"github.com/cuemby/bridge/pkg/output"
	"github.com/cuemby/bridge/pkg/types"
)

// DefaultPort is the bridge's default TCP port
const DefaultPort = 9485

// ErrPortInUse distinguishes a bind conflict from other listen failures so
// callers can print a remediation hint instead of a generic I/O error.
var ErrPortInUse = errors.New("port already in use")

// Server owns the listening socket, the subscriber set and the output
// buffer for one running period. Create with New, run with Start, and
// discard after Stop; a process runs at most one Server at a time, which
// the caller enforces.
type Server struct {
	port       int
	dispatcher *dispatch.Dispatcher
	out        *output.Buffer
	progress   func(types.ProgressEvent)

	listener  net.Listener
	startTime time.Time
	logger    zerolog.Logger

	closeOnce sync.Once
	done      chan struct{} // closed when the accept loop exits
}

// Option configures a Server
type Option func(*Server)

// WithProgress observes ready transitions
func WithProgress(fn func(types.ProgressEvent)) Option {
	return func(s *Server) {
		s.progress = fn
	}
}

// New creates a server listening on 127.0.0.1:port once started.
// A port of 0 binds an ephemeral port (useful in tests).
func New(port int, d *dispatch.Dispatcher, out *output.Buffer, opts ...Option) *Server {
	s := &Server{
		port:       port,
		dispatcher: d,
		out:        out,
		logger:     log.WithComponent("server"),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listener and begins accepting connections in the
// background. A bind conflict returns ErrPortInUse (wrapped); any other
// listen failure is returned as-is.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %d", ErrPortInUse, s.port)
		}
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}

	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.startTime = time.Now()
	s.dispatcher.SetServerInfo(s.port, s.startTime)

	go s.acceptLoop()

	s.logger.Info().Int("port", s.port).Msg("bridge server listening")
	s.out.Appendf("[server] listening on port %d", s.port)
	if s.progress != nil {
		s.progress(types.ProgressEvent{Kind: types.ProgressReady, Port: s.port})
	}
	return nil
}

// Stop closes the listening socket and returns once the accept loop has
// exited and the port is released. Idempotent: stopping an already-stopped
// server is a no-op.
func (s *Server) Stop() {
	if s.listener == nil {
		return
	}
	s.closeOnce.Do(func() {
		if err := s.listener.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("error closing listener")
		}
	})
	<-s.done
	s.logger.Info().Int("port", s.port).Msg("bridge server stopped")
}

// Port returns the bound port (resolved after Start for port 0)
func (s *Server) Port() int {
	return s.port
}

// Uptime returns the time since Start
func (s *Server) Uptime() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

func (s *Server) acceptLoop() {
	defer close(s.done)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// Transient accept failure; the listener is still live
			s.logger.Warn().Err(err).Msg("accept failed")
			continue
		}
		go s.handle(conn)
	}
}
