// Package swarm defines coordination sessions, votes, and decisions.
package swarm

import (
	"sort"
	"time"

	"github.com/Ramsi-K/EdgeMind/internal/domain/threshold"
)

// SessionStatus is the lifecycle state of a coordination session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
)

// Machine-readable reasons attached to coordination outcomes.
const (
	ReasonInsufficientHealthySites = "insufficient_healthy_sites"
	ReasonNoVotesFallback          = "no_votes_fallback"
	ReasonConsensus                = "consensus"
)

// Vote is one participant's recommendation.
type Vote struct {
	Participant string    `json:"participant"`
	Site        string    `json:"site"`
	Confidence  float64   `json:"confidence"`
	Reasoning   string    `json:"reasoning"`
	CastAt      time.Time `json:"cast_at"`
}

// Session is the mutable state of one coordination round.
type Session struct {
	ID           string          `json:"id"`
	Topic        string          `json:"topic"`
	Participants []string        `json:"participants"`
	Deadline     time.Time       `json:"deadline"`
	Votes        map[string]Vote `json:"votes"`
	Status       SessionStatus   `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
}

// Decision is the immutable outcome of a resolved session.
type Decision struct {
	ID           string         `json:"id"`
	SelectedSite string         `json:"selected_site"`
	Fallbacks    []string       `json:"fallbacks"`
	Confidence   float64        `json:"confidence"`
	Participants []string       `json:"participants"`
	VoteCounts   map[string]int `json:"vote_counts"`
	Reasoning    string         `json:"reasoning"`
	Duration     time.Duration  `json:"duration_ms"`
	DecidedAt    time.Time      `json:"decided_at"`
}

// Event records one coordination round, successful or not.
type Event struct {
	ID            string             `json:"id"`
	Success       bool               `json:"success"`
	Reason        string             `json:"reason"`
	Decision      *Decision          `json:"decision,omitempty"`
	TriggerSite   string             `json:"trigger_site"`
	TriggerMetric string             `json:"trigger_metric"`
	Severity      threshold.Severity `json:"severity"`
	Participants  []string           `json:"participants"`
	Duration      time.Duration      `json:"duration_ms"`
	ExecutorOK    bool               `json:"executor_ok"`
	ExecutorError string             `json:"executor_error,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
}

// Tally aggregates votes into a winning site. The winner is the site with
// the most votes; ties break by summed confidence, then by lexically
// smallest site id so identical vote sets always reproduce the same pick.
// Confidence is the mean confidence of the winner's voters. ok is false
// when no votes were cast.
func Tally(votes map[string]Vote) (winner string, confidence float64, counts map[string]int, ok bool) {
	if len(votes) == 0 {
		return "", 0, nil, false
	}

	counts = make(map[string]int)
	confSums := make(map[string]float64)
	for _, v := range votes {
		counts[v.Site]++
		confSums[v.Site] += v.Confidence
	}

	sites := make([]string, 0, len(counts))
	for s := range counts {
		sites = append(sites, s)
	}
	sort.Strings(sites)

	for _, s := range sites {
		if winner == "" {
			winner = s
			continue
		}
		switch {
		case counts[s] > counts[winner]:
			winner = s
		case counts[s] == counts[winner] && confSums[s] > confSums[winner]:
			winner = s
		}
	}

	return winner, confSums[winner] / float64(counts[winner]), counts, true
}
