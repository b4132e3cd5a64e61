package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Ramsi-K/EdgeMind/internal/adapter/ws"
	"github.com/Ramsi-K/EdgeMind/internal/domain/site"
	"github.com/Ramsi-K/EdgeMind/internal/service"
)

const defaultHistoryLimit = 50

// Handlers holds the services the HTTP surface exposes.
type Handlers struct {
	Registry    *service.SiteRegistry
	Monitor     *service.ThresholdMonitor
	History     *service.History
	Coordinator *service.SwarmCoordinator
	Ingestor    *service.Ingestor
	Hub         *ws.Hub
}

// Health reports process liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": h.Hub.ConnectionCount(),
	})
}

// GetStatus returns the coordinator's operational view of the swarm.
func (h *Handlers) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Coordinator.GetStatus())
}

// GetHistory returns recent coordination events, newest first.
// ?limit= caps the count, defaulting to 50.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, defaultHistoryLimit)
	events := h.Coordinator.GetEventHistory(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// GetThresholdHistory returns recent breach and recovery events.
func (h *Handlers) GetThresholdHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, defaultHistoryLimit)
	events := h.History.RecentThreshold(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// ListSites returns all registered sites with their latest telemetry.
func (h *Handlers) ListSites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Registry.List())
}

// GetSite returns one site.
func (h *Handlers) GetSite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.Registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "site not found")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetSiteBreaches returns the currently-breached metrics for a site.
func (h *Handlers) GetSiteBreaches(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.Registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "site not found")
		return
	}
	writeJSON(w, http.StatusOK, h.Monitor.GetBreachStatus(id))
}

// GetStats returns monitor counters.
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Monitor.Stats())
}

// PushSample ingests one telemetry sample for a site. The site id in the
// path wins over any id in the body; a zero timestamp means now. Any
// breach the sample causes has already triggered coordination by the
// time the response is written.
func (h *Handlers) PushSample(w http.ResponseWriter, r *http.Request) {
	sample, ok := readJSON[site.MetricSample](w, r)
	if !ok {
		return
	}
	sample.SiteID = chi.URLParam(r, "id")
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	events, err := h.Ingestor.Ingest(r.Context(), sample)
	if err != nil {
		writeDomainError(w, err, "site not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// FailSite marks a site as failed. Fault-injection surface for demos.
func (h *Handlers) FailSite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Coordinator.SimulateSiteFailure(r.Context(), id); err != nil {
		writeDomainError(w, err, "site not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"site_id": id, "status": "failed"})
}

// RecoverSite clears a site's failed flag.
func (h *Handlers) RecoverSite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Coordinator.SimulateSiteRecovery(r.Context(), id); err != nil {
		writeDomainError(w, err, "site not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"site_id": id, "status": "recovered"})
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return fallback
	}
	return limit
}
