package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Server metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_requests_total",
			Help: "Total number of dispatched requests by method and status",
		},
		[]string{"method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_request_duration_seconds",
			Help:    "Request dispatch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	ConnectionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_connections_open",
			Help: "Number of currently open client connections",
		},
	)

	// Broadcast metrics
	BroadcastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_broadcasts_total",
			Help: "Total number of broadcast events published",
		},
	)

	BroadcastDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_broadcast_deliveries_total",
			Help: "Total number of per-subscriber webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	// State metrics
	Subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_subscribers",
			Help: "Number of registered webhook subscribers",
		},
	)

	OutputLines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_output_lines",
			Help: "Number of lines currently retained in the output buffer",
		},
	)

	ConfigsWatched = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_configs_watched",
			Help: "Number of registered config files under watch",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ConnectionsOpen)
	prometheus.MustRegister(BroadcastsTotal)
	prometheus.MustRegister(BroadcastDeliveries)
	prometheus.MustRegister(Subscribers)
	prometheus.MustRegister(OutputLines)
	prometheus.MustRegister(ConfigsWatched)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
