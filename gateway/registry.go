package gateway

import (
	"errors"
	"io"

	"github.com/brightsphere/ai-gateway/providers"
	"github.com/brightsphere/ai-gateway/utils/priority_queue"
)

// Entry is one configured provider. Priority is ascending: lower runs first.
type Entry struct {
	Provider          providers.Provider
	Priority          int
	CredentialPresent bool
}

// Registry is the immutable, ordered set of providers built at startup.
type Registry struct {
	entries []Entry
}

// NewRegistry creates a registry from entries in configuration order.
func NewRegistry(entries ...Entry) *Registry {
	copied := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Provider == nil {
			continue
		}
		copied = append(copied, e)
	}
	return &Registry{entries: copied}
}

// ListAvailable returns the providers with credentials, ordered by ascending
// priority. Ties keep configuration order.
func (r *Registry) ListAvailable() []Entry {
	queue := priority_queue.NewMinPriorityQueue[Entry]()
	for _, e := range r.entries {
		if e.CredentialPresent {
			queue.Push(e, e.Priority)
		}
	}
	return queue.Drain()
}

// Names returns the names of the available providers in call order.
func (r *Registry) Names() []string {
	available := r.ListAvailable()
	names := make([]string, 0, len(available))
	for _, e := range available {
		names = append(names, e.Provider.Name())
	}
	return names
}

// Len returns the number of available providers.
func (r *Registry) Len() int {
	return len(r.ListAvailable())
}

// Close releases providers that hold connections.
func (r *Registry) Close() error {
	var errs []error
	for _, e := range r.entries {
		if closer, ok := e.Provider.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
