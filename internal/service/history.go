package service

import (
	"sync"

	"github.com/Ramsi-K/EdgeMind/internal/domain/swarm"
	"github.com/Ramsi-K/EdgeMind/internal/domain/threshold"
)

// ring is a bounded append-only buffer; the oldest entries are evicted
// once cap is exceeded.
type ring[T any] struct {
	items []T
	cap   int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{cap: capacity}
}

func (r *ring[T]) append(item T) {
	r.items = append(r.items, item)
	if len(r.items) > r.cap {
		r.items = r.items[len(r.items)-r.cap:]
	}
}

// recent returns up to limit items, newest first. limit <= 0 means all.
func (r *ring[T]) recent(limit int) []T {
	n := len(r.items)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]T, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.items[i])
	}
	return out
}

// History is the bounded, append-only log of breach events and
// coordination outcomes. Appends are safe under concurrent writers.
type History struct {
	mu        sync.Mutex
	swarm     *ring[swarm.Event]
	threshold *ring[threshold.Event]
}

// NewHistory creates a History retaining at most capacity entries per log.
func NewHistory(capacity int) *History {
	return &History{
		swarm:     newRing[swarm.Event](capacity),
		threshold: newRing[threshold.Event](capacity),
	}
}

// AppendSwarm records a coordination outcome.
func (h *History) AppendSwarm(ev swarm.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.swarm.append(ev)
}

// AppendThreshold records a breach or recovery event.
func (h *History) AppendThreshold(ev threshold.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.threshold.append(ev)
}

// RecentSwarm returns up to limit coordination events, newest first.
func (h *History) RecentSwarm(limit int) []swarm.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.swarm.recent(limit)
}

// RecentThreshold returns up to limit threshold events, newest first.
func (h *History) RecentThreshold(limit int) []threshold.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.threshold.recent(limit)
}

// SwarmBySite returns up to limit coordination events triggered by the
// given site, newest first.
func (h *History) SwarmBySite(siteID string, limit int) []swarm.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	all := h.swarm.recent(0)
	var out []swarm.Event
	for _, ev := range all {
		if ev.TriggerSite != siteID {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// ThresholdBySite returns up to limit threshold events for the given
// site, newest first.
func (h *History) ThresholdBySite(siteID string, limit int) []threshold.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	all := h.threshold.recent(0)
	var out []threshold.Event
	for _, ev := range all {
		if ev.SiteID != siteID {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
