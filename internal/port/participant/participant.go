// Package participant defines the coordination participant port (interface)
// and its factory registry.
package participant

import (
	"context"

	"github.com/Ramsi-K/EdgeMind/internal/domain/site"
	"github.com/Ramsi-K/EdgeMind/internal/domain/threshold"
)

// Request carries the breach context a participant evaluates.
type Request struct {
	Topic      string             `json:"topic"`
	SessionID  string             `json:"session_id"`
	Site       string             `json:"site"`     // the breached site
	Metric     string             `json:"metric"`   // the breached metric
	Value      float64            `json:"value"`    // observed value
	Threshold  float64            `json:"threshold"`
	Severity   threshold.Severity `json:"severity"`
	Candidates []site.Candidate   `json:"candidates"` // eligible replacement sites
}

// Vote is a participant's answer: a recommended site, how sure it is,
// and a human-readable justification.
type Vote struct {
	Site       string  `json:"site"`
	Confidence float64 `json:"confidence"` // in [0,1]
	Reasoning  string  `json:"reasoning"`
}

// Participant produces a vote within the deadline carried by ctx.
// How the vote is computed (LLM call, heuristic, fixed rule) is the
// implementation's business; the coordinator only sees the result.
type Participant interface {
	// Name returns the unique identifier for this participant.
	Name() string

	// Vote evaluates the request and returns a recommendation.
	// Implementations must respect ctx cancellation.
	Vote(ctx context.Context, req Request) (Vote, error)
}
