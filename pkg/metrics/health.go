package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus is the payload served on /healthz
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
}

var health = struct {
	mu        sync.RWMutex
	startTime time.Time
	version   string
}{startTime: time.Now()}

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	health.mu.Lock()
	defer health.mu.Unlock()
	health.version = version
}

// GetHealth returns the current health status
func GetHealth() HealthStatus {
	health.mu.RLock()
	defer health.mu.RUnlock()

	return HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   health.version,
		Uptime:    time.Since(health.startTime).String(),
	}
}

// HealthHandler serves the /healthz endpoint
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(GetHealth()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// NewServeMux returns a mux serving /metrics and /healthz
func NewServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.Handle("/healthz", HealthHandler())
	return mux
}
