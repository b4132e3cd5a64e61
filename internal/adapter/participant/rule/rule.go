// Package rule implements a deterministic load-based coordination
// participant. It always recommends the least-loaded healthy candidate.
package rule

import (
	"context"
	"fmt"
	"sort"

	"github.com/Ramsi-K/EdgeMind/internal/domain/site"
	"github.com/Ramsi-K/EdgeMind/internal/port/participant"
)

func init() {
	participant.Register("rule", func(name string, _ map[string]string) (participant.Participant, error) {
		return &Participant{name: name}, nil
	})
}

// Participant votes for the candidate with the lowest load score.
type Participant struct {
	name string
}

func (p *Participant) Name() string { return p.name }

// Vote picks the least-loaded candidate. Confidence scales with the load
// gap to the runner-up: a clear winner earns near-certain confidence, a
// near-tie stays close to the 0.5 floor.
func (p *Participant) Vote(_ context.Context, req participant.Request) (participant.Vote, error) {
	healthy := make([]site.Candidate, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		if c.Healthy {
			healthy = append(healthy, c)
		}
	}
	if len(healthy) == 0 {
		return participant.Vote{}, fmt.Errorf("no healthy candidates for session %s", req.SessionID)
	}

	sort.Slice(healthy, func(i, j int) bool {
		if healthy[i].LoadScore != healthy[j].LoadScore {
			return healthy[i].LoadScore < healthy[j].LoadScore
		}
		return healthy[i].SiteID < healthy[j].SiteID
	})

	best := healthy[0]
	confidence := 0.5
	if len(healthy) > 1 {
		gap := healthy[1].LoadScore - best.LoadScore
		confidence = 0.5 + gap*0.5/0.2
		if confidence > 0.95 {
			confidence = 0.95
		}
	}

	return participant.Vote{
		Site:       best.SiteID,
		Confidence: confidence,
		Reasoning: fmt.Sprintf("lowest load score %.2f among %d healthy sites",
			best.LoadScore, len(healthy)),
	}, nil
}
