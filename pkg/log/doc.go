/*
Package log provides structured logging for Bridge using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level.

# Architecture

Bridge's logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stderr, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("server")                  │          │
	│  │  - WithMethod("eval")                       │          │
	│  │  - WithConnID("9f3a1c2e")                   │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

Process logs go to stderr (or the configured writer). Protocol-level traces
that must be visible to remote clients are additionally appended to the
output ring buffer by the packages that produce them; this package only
covers the process-side log stream.

# Usage

Initialization (once, at startup):

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Component loggers:

	logger := log.WithComponent("dispatch")
	logger.Info().Str("method", "status").Msg("dispatching request")
*/
package log
