package mqtt

import (
	"sort"
	"sync"
)

// Registry tracks the set of topics the session intends to be subscribed to.
// Pure bookkeeping, no I/O: the broker's actual subscription set converges
// on this one through subscribe calls and reconnect restoration.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]struct{}
}

// NewRegistry creates an empty topic registry.
func NewRegistry() *Registry {
	return &Registry{
		topics: make(map[string]struct{}),
	}
}

// Add records a topic. Adding an already-tracked topic is a no-op.
func (r *Registry) Add(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics[topic] = struct{}{}
}

// Remove forgets a topic. Removing an untracked topic is a no-op.
func (r *Registry) Remove(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.topics, topic)
}

// Has reports whether the topic is tracked.
// This checks the exact topic string, not wildcard pattern matching.
func (r *Registry) Has(topic string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.topics[topic]
	return ok
}

// Topics returns a sorted snapshot of tracked topics.
func (r *Registry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]string, 0, len(r.topics))
	for t := range r.topics {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Count returns the number of tracked topics.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics)
}
