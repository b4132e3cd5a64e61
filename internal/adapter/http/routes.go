package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/ws", h.Hub.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Get("/status", h.GetStatus)
		r.Get("/history", h.GetHistory)
		r.Get("/events", h.GetThresholdHistory)
		r.Get("/stats", h.GetStats)

		r.Get("/sites", h.ListSites)
		r.Get("/sites/{id}", h.GetSite)
		r.Get("/sites/{id}/breaches", h.GetSiteBreaches)
		r.Post("/sites/{id}/samples", h.PushSample)
		r.Post("/sites/{id}/fail", h.FailSite)
		r.Post("/sites/{id}/recover", h.RecoverSite)
	})
}
