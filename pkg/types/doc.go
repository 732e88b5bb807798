/*
Package types defines the shared data structures for the Bridge wire
protocol and its collaborator interfaces.

Request and Response model the one-object-per-connection JSON exchange.
BroadcastEvent is the webhook payload fanned out to subscribers.
StatusSnapshot, ViewOptions and ConfigEntry are the shapes exchanged with
the host, webview and config collaborators respectively.

All types here are plain data: no behavior beyond small constructors, so
every other package can depend on this one without cycles.
*/
package types
