package server

import (
	"encoding/json"
	"net"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/bridge/pkg/metrics"
	"github.com/cuemby/bridge/pkg/types"
)

// handle runs one connection through its lifecycle: read one request,
// dispatch, write exactly one response, close. Transport errors are logged
// and abandon the connection without affecting any other.
func (s *Server) handle(conn net.Conn) {
	metrics.ConnectionsOpen.Inc()
	defer metrics.ConnectionsOpen.Dec()
	defer conn.Close()

	connID := uuid.NewString()[:8]
	logger := s.logger.With().Str("conn_id", connID).Logger()

	// A streaming decoder reassembles a request split across multiple
	// transport reads; the first complete JSON value is the whole request
	// and trailing bytes are ignored.
	var req types.Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		logger.Debug().Err(err).Msg("malformed request")
		s.out.Appendf("[server] malformed request: %v", err)
		s.writeResponse(conn, types.ErrResponse("invalid JSON: "+err.Error()), logger)
		return
	}

	s.out.Appendf("[server] <- %s (conn %s)", req.Method, connID)

	res := s.dispatcher.Dispatch(req)

	s.writeResponse(conn, res.Response, logger)
	s.out.Appendf("[server] -> %s ok=%t (conn %s)", req.Method, res.Response.OK, connID)

	if res.After != nil {
		// Close first so the client has the acknowledgement in hand
		conn.Close()
		res.After()
	}
}

// writeResponse writes the single response object for this connection.
// A result that cannot be serialized is downgraded to an error response so
// the one-response invariant holds even then.
func (s *Server) writeResponse(conn net.Conn, resp types.Response, logger zerolog.Logger) {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(types.ErrResponse("failed to encode result: " + err.Error()))
	}
	data = append(data, '\n')

	if _, err := conn.Write(data); err != nil {
		// Transport error: the exchange is abandoned, the server keeps going
		logger.Warn().Err(err).Msg("failed to write response")
	}
}
