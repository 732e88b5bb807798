package broadcast

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/bridge/pkg/log"
	"github.com/cuemby/bridge/pkg/metrics"
	"github.com/cuemby/bridge/pkg/output"
	"github.com/cuemby/bridge/pkg/subscribers"
	"github.com/cuemby/bridge/pkg/types"
)

// Broadcaster pushes events to every registered webhook URL, independently
// and best-effort. Publish returns before any delivery completes; each
// failure is recorded in the output buffer and never reaches the caller.
type Broadcaster struct {
	registry *subscribers.Registry
	out      *output.Buffer
	client   *http.Client
	logger   zerolog.Logger
}

// Option configures a Broadcaster
type Option func(*Broadcaster)

// WithTimeout bounds each webhook POST. The default is no timeout;
// deliveries are already detached from the caller either way.
func WithTimeout(d time.Duration) Option {
	return func(b *Broadcaster) {
		b.client.Timeout = d
	}
}

// New creates a broadcaster delivering to the given registry's URLs
func New(registry *subscribers.Registry, out *output.Buffer, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		registry: registry,
		out:      out,
		client:   &http.Client{},
		logger:   log.WithComponent("broadcast"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish fans event out to all current subscribers and returns immediately.
// The subscriber set is snapshotted up front: a URL added after Publish is
// called is not included in this broadcast.
func (b *Broadcaster) Publish(event types.BroadcastEvent) {
	urls := b.registry.List()
	metrics.BroadcastsTotal.Inc()

	if len(urls) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		// Event data came from our own callers; log and drop
		b.logger.Error().Err(err).Str("event", event.Event).Msg("failed to encode broadcast event")
		b.out.Appendf("[broadcast] failed to encode event %q: %v", event.Event, err)
		return
	}

	b.logger.Debug().Str("event", event.Event).Int("subscribers", len(urls)).Msg("broadcasting event")

	for _, url := range urls {
		go b.deliver(url, event.Event, payload)
	}
}

// deliver POSTs one payload to one subscriber. Failures are absorbed here:
// logged, counted and written to the output buffer, never propagated.
func (b *Broadcaster) deliver(url, event string, payload []byte) {
	resp, err := b.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		metrics.BroadcastDeliveries.WithLabelValues("error").Inc()
		b.logger.Warn().Err(err).Str("url", url).Str("event", event).Msg("webhook delivery failed")
		b.out.Appendf("[broadcast] failed to deliver %q to %s: %v", event, url, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		metrics.BroadcastDeliveries.WithLabelValues("error").Inc()
		b.logger.Warn().Int("status", resp.StatusCode).Str("url", url).Str("event", event).Msg("webhook returned error status")
		b.out.Appendf("[broadcast] subscriber %s rejected %q: HTTP %d", url, event, resp.StatusCode)
		return
	}

	metrics.BroadcastDeliveries.WithLabelValues("ok").Inc()
}
