/*
Package dispatch implements the Bridge command table.

Every wire request is parsed into one variant of a closed command set and
routed through a fixed table of handlers:

	┌───────────────────── DISPATCH PIPELINE ─────────────────────┐
	│                                                               │
	│  Request{method, params}                                      │
	│        │                                                      │
	│        ▼                                                      │
	│  parseCommand ── unknown method ──► error listing the table   │
	│        │          missing param ──► validation error          │
	│        ▼                                                      │
	│  typed command variant (statusCmd, evalCmd, …)                │
	│        │                                                      │
	│        ▼                                                      │
	│  handler ──► delegates to Host / Webview / Configs,           │
	│              or mutates the subscriber set / reads the ring   │
	│        │                                                      │
	│        ▼                                                      │
	│  Result{Response, After}                                      │
	└───────────────────────────────────────────────────────────────┘

Method table:

	status            host snapshot + server uptime/port/subscriber count
	eval              run code on the host surface (implicit-return wrapping)
	webview           open a panel via the webview collaborator
	registerConfig    register a named config file (watched for reload)
	unregisterConfig  remove a named config
	listConfigs       enumerate registered configs
	subscribe         add a webhook URL (idempotent)
	unsubscribe       remove a webhook URL (idempotent)
	listSubscribers   enumerate webhook URLs
	getOutput         tail of the output ring buffer (default 100 lines)
	restartExtension  acknowledge, then restart after the response is sent

Dispatch never lets a failure cross its boundary: validation errors,
unknown methods, collaborator failures and handler panics all become
{ok:false, error} responses. Method entry/exit traces are appended to the
output ring buffer so the dispatch history is remotely inspectable.
*/
package dispatch
