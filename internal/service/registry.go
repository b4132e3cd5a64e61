package service

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Ramsi-K/EdgeMind/internal/config"
	"github.com/Ramsi-K/EdgeMind/internal/domain"
	"github.com/Ramsi-K/EdgeMind/internal/domain/site"
)

// SiteRegistry holds the fixed set of monitored sites and their last-known
// telemetry snapshot. Sites are configured at startup and never removed,
// only marked failed or recovered.
type SiteRegistry struct {
	mu    sync.RWMutex
	sites map[string]*site.Site
	order []string // stable listing order
	now   func() time.Time
}

// NewSiteRegistry creates a registry populated from the configured sites.
func NewSiteRegistry(cfgs []config.Site) *SiteRegistry {
	r := &SiteRegistry{
		sites: make(map[string]*site.Site, len(cfgs)),
		now:   time.Now,
	}
	for _, c := range cfgs {
		r.sites[c.ID] = &site.Site{
			ID:       c.ID,
			Name:     c.Name,
			Location: c.Location,
		}
		r.order = append(r.order, c.ID)
	}
	sort.Strings(r.order)
	return r
}

// PushSample stores a site's latest telemetry snapshot.
func (r *SiteRegistry) PushSample(sample site.MetricSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sites[sample.SiteID]
	if !ok {
		return fmt.Errorf("site %s: %w", sample.SiteID, domain.ErrNotFound)
	}
	s.LastSample = &sample
	s.UpdatedAt = r.now()
	return nil
}

// Get returns a copy of the site.
func (r *SiteRegistry) Get(siteID string) (site.Site, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sites[siteID]
	if !ok {
		return site.Site{}, false
	}
	return *s, true
}

// List returns copies of all sites in stable id order.
func (r *SiteRegistry) List() []site.Site {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]site.Site, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.sites[id])
	}
	return out
}

// IDs returns all site ids in stable order.
func (r *SiteRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// MarkFailed flags a site as failed, removing it from coordination
// eligibility until recovered.
func (r *SiteRegistry) MarkFailed(siteID string) error {
	return r.setFailed(siteID, true)
}

// MarkRecovered clears a site's failed flag.
func (r *SiteRegistry) MarkRecovered(siteID string) error {
	return r.setFailed(siteID, false)
}

func (r *SiteRegistry) setFailed(siteID string, failed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sites[siteID]
	if !ok {
		return fmt.Errorf("site %s: %w", siteID, domain.ErrNotFound)
	}
	if s.Failed != failed {
		s.Failed = failed
		s.UpdatedAt = r.now()
		slog.Info("site status changed", "site_id", siteID, "failed", failed)
	}
	return nil
}
