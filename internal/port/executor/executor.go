// Package executor defines the decision hand-off port.
package executor

import (
	"context"

	"github.com/Ramsi-K/EdgeMind/internal/domain/swarm"
)

// Executor receives a resolved decision for external execution.
// The coordinator records the result but never retries on the
// executor's behalf.
type Executor interface {
	// Name returns the unique identifier for this executor (e.g. "nats", "log").
	Name() string

	// Execute hands the decision off. Implementations must respect ctx.
	Execute(ctx context.Context, d swarm.Decision) error
}
