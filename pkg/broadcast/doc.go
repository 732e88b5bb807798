/*
Package broadcast implements webhook fan-out for Bridge events.

The broadcaster pushes structured events to every URL in the subscriber
registry via HTTP POST. Delivery is fire-and-forget: Publish snapshots the
current subscriber set, spawns one goroutine per URL, and returns without
waiting. Guarantees are intentionally at-most-once and best-effort.

# Delivery Flow

 1. Caller (activation glue, config watcher) calls Publish(event)
 2. Subscriber set snapshotted; event marshaled once
 3. One goroutine per URL performs POST with Content-Type: application/json
 4. Per-URL failures are logged and appended to the output ring buffer
 5. One subscriber's failure never affects delivery to the others
    and never reaches the Publish caller

Wire payload:

	{"event": "terminal-changed", "timestamp": 1234567890, "data": {...}}

There is no retry, ordering guarantee across subscribers, or caller-visible
timeout. Deliveries hold no locks, so a slow subscriber cannot stall the
registry or the dispatcher.
*/
package broadcast
