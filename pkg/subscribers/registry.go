package subscribers

import (
	"sort"
	"sync"

	"github.com/cuemby/bridge/pkg/metrics"
)

// Registry is the set of webhook URLs registered for broadcast delivery.
// Membership is by exact string equality; mutations are idempotent and
// safe for concurrent use. The set is process-lifetime state and is never
// persisted across restarts.
type Registry struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		urls: make(map[string]struct{}),
	}
}

// Add registers a URL. Adding an already-present URL is a no-op;
// the return value reports whether the set changed.
func (r *Registry) Add(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.urls[url]; exists {
		return false
	}
	r.urls[url] = struct{}{}
	metrics.Subscribers.Set(float64(len(r.urls)))
	return true
}

// Remove unregisters a URL. Removing an absent URL is a no-op;
// the return value reports whether the set changed.
func (r *Registry) Remove(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.urls[url]; !exists {
		return false
	}
	delete(r.urls, url)
	metrics.Subscribers.Set(float64(len(r.urls)))
	return true
}

// Has reports whether a URL is registered
func (r *Registry) Has(url string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.urls[url]
	return exists
}

// List returns a sorted snapshot of the registered URLs
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	urls := make([]string, 0, len(r.urls))
	for url := range r.urls {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// Count returns the number of registered URLs
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.urls)
}
