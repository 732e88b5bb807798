/*
Package server implements the Bridge TCP listener and connection lifecycle.

The server accepts connections on 127.0.0.1 (default port 9485) and runs a
strict one-exchange protocol per connection:

	┌──────────────────── CONNECTION LIFECYCLE ────────────────────┐
	│                                                                │
	│  IDLE ──accept──► CONNECTED                                    │
	│                      │                                         │
	│                      │ stream-decode one JSON value            │
	│                      │                                         │
	│          malformed ──┼──────────────► error response ──┐       │
	│                      ▼                                  │      │
	│                  PROCESSING (dispatch)                  │      │
	│                      │                                  │      │
	│                      ▼                                  ▼      │
	│                  RESPONDING ── write one JSON ──► CLOSED       │
	└────────────────────────────────────────────────────────────────┘

Exactly one response object is written per accepted connection, even on
error. Connections are handled concurrently, each in its own goroutine;
the shared subscriber registry and output buffer carry their own locks.

Start distinguishes a bind conflict (ErrPortInUse) from other listen
failures so the caller can print remediation. Stop closes the listener,
waits for the accept loop to exit, and is idempotent. There are no
request timeouts: a long-running eval holds its connection open until it
completes.
*/
package server
