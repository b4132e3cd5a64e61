// Package telemetry defines the sample source port.
package telemetry

import (
	"context"

	"github.com/Ramsi-K/EdgeMind/internal/domain/site"
)

// Provider produces telemetry samples for monitored sites. The core does
// not care whether samples are synthetic, polled, or pushed; the ingest
// pipeline pulls from a Provider, and the HTTP surface accepts pushes.
type Provider interface {
	// Name returns the unique identifier for this provider (e.g. "sim").
	Name() string

	// Sample returns a fresh sample for the given site.
	Sample(ctx context.Context, siteID string) (site.MetricSample, error)
}
