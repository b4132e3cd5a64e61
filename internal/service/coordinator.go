package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	edgeotel "github.com/Ramsi-K/EdgeMind/internal/adapter/otel"
	"github.com/Ramsi-K/EdgeMind/internal/config"
	"github.com/Ramsi-K/EdgeMind/internal/domain/site"
	"github.com/Ramsi-K/EdgeMind/internal/domain/swarm"
	"github.com/Ramsi-K/EdgeMind/internal/domain/threshold"
	"github.com/Ramsi-K/EdgeMind/internal/port/broadcast"
	"github.com/Ramsi-K/EdgeMind/internal/port/executor"
	"github.com/Ramsi-K/EdgeMind/internal/port/participant"
)

// CoordinatorState is the coarse phase of the coordination engine.
type CoordinatorState string

const (
	StateIdle       CoordinatorState = "idle"
	StateActivating CoordinatorState = "activating"
	StateConsensus  CoordinatorState = "consensus"
	StateExecuting  CoordinatorState = "executing"
)

// Broadcast event types emitted by the coordinator.
const (
	EventSwarmCompleted = "swarm.completed"
	EventSwarmFailed    = "swarm.failed"
	EventSiteStatus     = "site.status"
)

// maxFallbackSites caps the ordered fallback list on a decision.
const maxFallbackSites = 2

// SiteSummary is one site's line in the coordinator status.
type SiteSummary struct {
	ID             string    `json:"id"`
	Failed         bool      `json:"failed"`
	Healthy        bool      `json:"healthy"`
	LoadScore      float64   `json:"load_score"`
	ActiveBreaches int       `json:"active_breaches"`
	LastSeen       time.Time `json:"last_seen"`
}

// Status is the coordinator's point-in-time operational view.
type Status struct {
	State          CoordinatorState `json:"state"`
	TotalSites     int              `json:"total_sites"`
	HealthySites   int              `json:"healthy_sites"`
	TotalDecisions uint64           `json:"total_decisions"`
	Sites          []SiteSummary    `json:"sites"`
}

// SwarmCoordinator runs deadline-bounded consensus rounds among the
// configured participants whenever a breach event activates it. Every
// public operation has a bounded worst-case latency: the configured
// deadline plus constant bookkeeping.
type SwarmCoordinator struct {
	cfg          config.Swarm
	registry     *SiteRegistry
	monitor      *ThresholdMonitor
	participants []participant.Participant
	executor     executor.Executor
	history      *History
	hub          broadcast.Broadcaster // optional
	metrics      *edgeotel.Metrics     // optional

	mu             sync.Mutex
	state          CoordinatorState
	activeRounds   int
	totalDecisions uint64

	now func() time.Time
}

// NewSwarmCoordinator creates a coordinator. hub and metrics may be nil.
func NewSwarmCoordinator(
	cfg config.Swarm,
	registry *SiteRegistry,
	monitor *ThresholdMonitor,
	participants []participant.Participant,
	exec executor.Executor,
	history *History,
	hub broadcast.Broadcaster,
	metrics *edgeotel.Metrics,
) *SwarmCoordinator {
	return &SwarmCoordinator{
		cfg:          cfg,
		registry:     registry,
		monitor:      monitor,
		participants: participants,
		executor:     exec,
		history:      history,
		hub:          hub,
		metrics:      metrics,
		state:        StateIdle,
		now:          time.Now,
	}
}

// ActivateOnBreach runs one coordination round for a breach event and
// returns the recorded outcome. It is normally wired as a monitor breach
// callback. Failures (insufficient quorum, executor errors) are reported
// on the returned event, never as a panic or unbounded block.
func (c *SwarmCoordinator) ActivateOnBreach(ctx context.Context, ev threshold.Event) swarm.Event {
	started := c.now()
	c.enterRound()
	defer c.leaveRound()

	candidates := c.eligibleSites()

	if len(candidates) < c.cfg.MinHealthySites {
		out := swarm.Event{
			ID:            uuid.NewString(),
			Success:       false,
			Reason:        swarm.ReasonInsufficientHealthySites,
			TriggerSite:   ev.SiteID,
			TriggerMetric: ev.Metric,
			Severity:      ev.Severity,
			Duration:      c.now().Sub(started),
			Timestamp:     c.now(),
		}
		slog.Warn("coordination skipped",
			"trigger_site", ev.SiteID,
			"metric", ev.Metric,
			"healthy_sites", len(candidates),
			"min_required", c.cfg.MinHealthySites,
		)
		c.finishRound(ctx, out, started)
		return out
	}

	session := c.openSession(ev)
	c.setState(StateConsensus)
	votes := c.collectVotes(ctx, session, ev, candidates)
	if len(votes) < len(c.participants) {
		session.Status = swarm.SessionExpired
	} else {
		session.Status = swarm.SessionCompleted
	}

	decision := c.aggregate(votes, candidates, started)

	c.setState(StateExecuting)
	execOK, execErr := c.execute(ctx, decision)

	reason := swarm.ReasonConsensus
	if decision.Reasoning == swarm.ReasonNoVotesFallback {
		reason = swarm.ReasonNoVotesFallback
	}

	out := swarm.Event{
		ID:            uuid.NewString(),
		Success:       true,
		Reason:        reason,
		Decision:      &decision,
		TriggerSite:   ev.SiteID,
		TriggerMetric: ev.Metric,
		Severity:      ev.Severity,
		Participants:  session.Participants,
		Duration:      c.now().Sub(started),
		ExecutorOK:    execOK,
		Timestamp:     c.now(),
	}
	if execErr != nil {
		out.ExecutorError = execErr.Error()
	}

	slog.Info("coordination round completed",
		"session_id", session.ID,
		"trigger_site", ev.SiteID,
		"selected_site", decision.SelectedSite,
		"confidence", decision.Confidence,
		"votes", len(votes),
		"duration_ms", out.Duration.Milliseconds(),
		"executor_ok", execOK,
	)

	c.mu.Lock()
	c.totalDecisions++
	c.mu.Unlock()

	c.finishRound(ctx, out, started)
	return out
}

// enterRound and leaveRound track overlapping rounds so the coarse state
// returns to idle only when the last round finishes.
func (c *SwarmCoordinator) enterRound() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeRounds++
	c.state = StateActivating
}

func (c *SwarmCoordinator) leaveRound() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeRounds--
	if c.activeRounds == 0 {
		c.state = StateIdle
	}
}

func (c *SwarmCoordinator) setState(s CoordinatorState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// eligibleSites returns candidates for all currently-healthy sites:
// not marked failed, and with no active breaches.
func (c *SwarmCoordinator) eligibleSites() []site.Candidate {
	var out []site.Candidate
	for _, s := range c.registry.List() {
		if s.Failed || c.monitor.HasActiveBreaches(s.ID) {
			continue
		}
		out = append(out, site.Candidate{
			SiteID:    s.ID,
			LoadScore: s.LoadScore(),
			Healthy:   true,
		})
	}
	return out
}

func (c *SwarmCoordinator) openSession(ev threshold.Event) *swarm.Session {
	names := make([]string, 0, len(c.participants))
	for _, p := range c.participants {
		names = append(names, p.Name())
	}
	return &swarm.Session{
		ID:           uuid.NewString(),
		Topic:        "site_selection:" + ev.SiteID,
		Participants: names,
		Deadline:     c.now().Add(c.cfg.Deadline),
		Votes:        make(map[string]swarm.Vote),
		Status:       swarm.SessionActive,
		StartedAt:    c.now(),
	}
}

type voteResult struct {
	participant string
	vote        participant.Vote
	err         error
}

// collectVotes polls every participant concurrently under one shared
// deadline. Late or erroring participants are excluded from the tally,
// not retried; a single hung participant never extends the round.
func (c *SwarmCoordinator) collectVotes(
	ctx context.Context,
	session *swarm.Session,
	ev threshold.Event,
	candidates []site.Candidate,
) map[string]swarm.Vote {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Deadline)
	defer cancel()

	req := participant.Request{
		Topic:      session.Topic,
		SessionID:  session.ID,
		Site:       ev.SiteID,
		Metric:     ev.Metric,
		Value:      ev.Value,
		Threshold:  ev.Threshold,
		Severity:   ev.Severity,
		Candidates: candidates,
	}

	results := make(chan voteResult, len(c.participants))
	sem := semaphore.NewWeighted(int64(c.cfg.MaxParallel))

	for _, p := range c.participants {
		go func(p participant.Participant) {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- voteResult{participant: p.Name(), err: err}
				return
			}
			defer sem.Release(1)
			v, err := p.Vote(ctx, req)
			results <- voteResult{participant: p.Name(), vote: v, err: err}
		}(p)
	}

	eligible := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		eligible[cand.SiteID] = true
	}

	for range c.participants {
		select {
		case r := <-results:
			if r.err != nil {
				slog.Warn("participant vote failed",
					"session_id", session.ID,
					"participant", r.participant,
					"error", r.err,
				)
				continue
			}
			if !eligible[r.vote.Site] {
				slog.Warn("participant voted for ineligible site",
					"session_id", session.ID,
					"participant", r.participant,
					"site", r.vote.Site,
				)
				continue
			}
			session.Votes[r.participant] = swarm.Vote{
				Participant: r.participant,
				Site:        r.vote.Site,
				Confidence:  clamp01(r.vote.Confidence),
				Reasoning:   r.vote.Reasoning,
				CastAt:      c.now(),
			}
		case <-ctx.Done():
			return session.Votes
		}
	}
	return session.Votes
}

// aggregate turns collected votes into a decision. With no votes at all the
// healthiest candidate wins with a fixed low confidence.
func (c *SwarmCoordinator) aggregate(
	votes map[string]swarm.Vote,
	candidates []site.Candidate,
	started time.Time,
) swarm.Decision {
	byLoad := make([]site.Candidate, len(candidates))
	copy(byLoad, candidates)
	sort.Slice(byLoad, func(i, j int) bool {
		if byLoad[i].LoadScore != byLoad[j].LoadScore {
			return byLoad[i].LoadScore < byLoad[j].LoadScore
		}
		return byLoad[i].SiteID < byLoad[j].SiteID
	})

	d := swarm.Decision{
		ID:        uuid.NewString(),
		DecidedAt: c.now(),
	}

	winner, confidence, counts, ok := swarm.Tally(votes)
	if ok {
		voters := make([]string, 0, len(votes))
		for name := range votes {
			voters = append(voters, name)
		}
		sort.Strings(voters)
		d.SelectedSite = winner
		d.Confidence = confidence
		d.VoteCounts = counts
		d.Participants = voters
		d.Reasoning = fmt.Sprintf("%d/%d votes for %s", counts[winner], len(votes), winner)
	} else {
		d.SelectedSite = byLoad[0].SiteID
		d.Confidence = c.cfg.NoVoteConfidence
		d.Reasoning = swarm.ReasonNoVotesFallback
	}

	for _, cand := range byLoad {
		if cand.SiteID == d.SelectedSite {
			continue
		}
		d.Fallbacks = append(d.Fallbacks, cand.SiteID)
		if len(d.Fallbacks) == maxFallbackSites {
			break
		}
	}

	d.Duration = c.now().Sub(started)
	return d
}

// execute hands the decision to the external executor under its own
// bounded timeout. The result is recorded, never retried.
func (c *SwarmCoordinator) execute(ctx context.Context, d swarm.Decision) (bool, error) {
	if c.executor == nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ExecutorTimeout)
	defer cancel()

	if err := c.executor.Execute(ctx, d); err != nil {
		slog.Error("decision execution failed",
			"decision_id", d.ID,
			"executor", c.executor.Name(),
			"error", err,
		)
		return false, err
	}
	return true, nil
}

// finishRound records the outcome and notifies observers.
func (c *SwarmCoordinator) finishRound(ctx context.Context, out swarm.Event, started time.Time) {
	if c.history != nil {
		c.history.AppendSwarm(out)
	}
	if c.hub != nil {
		evType := EventSwarmCompleted
		if !out.Success {
			evType = EventSwarmFailed
		}
		c.hub.BroadcastEvent(ctx, evType, out)
	}
	if c.metrics != nil {
		outcome := out.Reason
		c.metrics.RoundsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.Bool("success", out.Success),
		))
		c.metrics.RoundDuration.Record(ctx, c.now().Sub(started).Seconds())
		if out.Decision != nil {
			c.metrics.VotesCollected.Add(ctx, int64(len(out.Decision.Participants)))
		}
	}
}

// GetStatus returns the coordinator's operational view.
func (c *SwarmCoordinator) GetStatus() Status {
	c.mu.Lock()
	state := c.state
	decisions := c.totalDecisions
	c.mu.Unlock()

	st := Status{
		State:          state,
		TotalDecisions: decisions,
	}
	for _, s := range c.registry.List() {
		breaches := c.monitor.GetBreachStatus(s.ID)
		healthy := !s.Failed && !breaches.HasActiveBreaches
		if healthy {
			st.HealthySites++
		}
		st.Sites = append(st.Sites, SiteSummary{
			ID:             s.ID,
			Failed:         s.Failed,
			Healthy:        healthy,
			LoadScore:      s.LoadScore(),
			ActiveBreaches: len(breaches.Active),
			LastSeen:       s.UpdatedAt,
		})
	}
	st.TotalSites = len(st.Sites)
	return st
}

// GetEventHistory returns up to limit coordination events, newest first.
func (c *SwarmCoordinator) GetEventHistory(limit int) []swarm.Event {
	if c.history == nil {
		return nil
	}
	return c.history.RecentSwarm(limit)
}

// SimulateSiteFailure marks a site failed. Fault-injection surface.
func (c *SwarmCoordinator) SimulateSiteFailure(ctx context.Context, siteID string) error {
	if err := c.registry.MarkFailed(siteID); err != nil {
		return err
	}
	c.broadcastSiteStatus(ctx, siteID, true)
	return nil
}

// SimulateSiteRecovery clears a site's failed flag. Fault-injection surface.
func (c *SwarmCoordinator) SimulateSiteRecovery(ctx context.Context, siteID string) error {
	if err := c.registry.MarkRecovered(siteID); err != nil {
		return err
	}
	c.broadcastSiteStatus(ctx, siteID, false)
	return nil
}

func (c *SwarmCoordinator) broadcastSiteStatus(ctx context.Context, siteID string, failed bool) {
	if c.hub == nil {
		return
	}
	c.hub.BroadcastEvent(ctx, EventSiteStatus, map[string]any{
		"site_id": siteID,
		"failed":  failed,
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
