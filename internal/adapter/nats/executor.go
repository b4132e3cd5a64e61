package nats

import (
	"context"

	"github.com/Ramsi-K/EdgeMind/internal/domain/swarm"
)

// DecisionExecutor carries out coordination decisions by publishing them
// to the selected site's orchestrator over JetStream. Delivery is the
// execution; the subscriber side owns the actual traffic shift.
type DecisionExecutor struct {
	bus *Bus
}

// NewDecisionExecutor wraps a connected bus as a decision executor.
func NewDecisionExecutor(bus *Bus) *DecisionExecutor {
	return &DecisionExecutor{bus: bus}
}

func (e *DecisionExecutor) Name() string { return "nats" }

func (e *DecisionExecutor) Execute(ctx context.Context, d swarm.Decision) error {
	return e.bus.PublishDecision(ctx, d)
}
