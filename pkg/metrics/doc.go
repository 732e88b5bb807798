/*
Package metrics provides Prometheus metrics and health endpoints for Bridge.

Collectors are package-level and registered in init(), following the
standard client_golang pattern: packages that produce the measurements
update them directly (the server increments request counters, the
broadcaster counts deliveries, the output buffer keeps its line gauge
current).

The serve command exposes them over HTTP when a metrics address is
configured:

	GET /metrics  Prometheus exposition format
	GET /healthz  JSON health status with uptime and version

Metrics exposed:

	bridge_requests_total{method,status}        dispatched requests
	bridge_request_duration_seconds{method}     dispatch latency
	bridge_connections_open                     open client connections
	bridge_broadcasts_total                     broadcast events published
	bridge_broadcast_deliveries_total{outcome}  per-subscriber POST outcomes
	bridge_subscribers                          registered webhook URLs
	bridge_output_lines                         retained output buffer lines
	bridge_configs_watched                      config files under watch
*/
package metrics
