/*
Package host implements the default host capability surface for Bridge.

The host tracks application-side state (workspace path, active editor,
terminals) fed in by the embedding process, answers status queries, and
executes arbitrary scripts through an embedded Lua interpreter
(gopher-lua).

# Script execution

Each Eval call runs in a fresh Lua state. The state gets a safe stdlib
subset (base, table, string, math; no io/os/debug) plus a fixed whitelist
of host bindings:

	log(...), warn(...), err(...)  write into the output ring buffer
	status()                       host state snapshot as a table
	workspace()                    workspace path
	terminals()                    tracked terminals as an array
	sleep(ms)                      block the calling script

Expression input ("1+1") is wrapped with an implicit return; anything
containing a newline, semicolon or the return keyword runs verbatim. The
first value a chunk returns is converted to a JSON-compatible Go value.

There is no execution timeout: a long-running script holds its connection
open until it finishes or raises, which is the accepted contract.

State mutations (TrackTerminal, SetActiveEditor, ReleaseTerminal) emit
broadcast events through the configured publisher so webhook subscribers
observe host-side changes.
*/
package host
