// Package sim generates synthetic site telemetry with configurable
// breach scenarios, for local development and demos.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Ramsi-K/EdgeMind/internal/config"
	"github.com/Ramsi-K/EdgeMind/internal/domain/site"
)

// Scenario selects what the generator is simulating for a site.
type Scenario string

const (
	ScenarioNormal       Scenario = "normal"
	ScenarioCPUSpike     Scenario = "cpu_spike"
	ScenarioLatencySpike Scenario = "latency_spike"
	ScenarioQueueFlood   Scenario = "queue_flood"
)

type baseline struct {
	cpu      float64
	gpu      float64
	memory   float64
	queue    int
	response float64
	rps      int
	conns    int
}

type activeScenario struct {
	kind  Scenario
	until time.Time
}

// Provider generates per-site telemetry around stable baselines with
// bounded jitter. A fixed seed makes runs reproducible.
type Provider struct {
	mu        sync.Mutex
	rng       *rand.Rand
	baselines map[string]baseline
	peers     map[string]map[string]float64
	scenarios map[string]activeScenario
	now       func() time.Time
}

// New builds a provider over the configured sites. seed 0 falls back to
// the current time.
func New(sites []config.Site, seed int64) *Provider {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	p := &Provider{
		rng:       rng,
		baselines: make(map[string]baseline, len(sites)),
		peers:     make(map[string]map[string]float64, len(sites)),
		scenarios: make(map[string]activeScenario),
		now:       time.Now,
	}
	for _, s := range sites {
		p.baselines[s.ID] = baseline{
			cpu:      20 + rng.Float64()*20,
			gpu:      15 + rng.Float64()*20,
			memory:   30 + rng.Float64()*20,
			queue:    5 + rng.Intn(11),
			response: 25 + rng.Float64()*20,
			rps:      50 + rng.Intn(101),
			conns:    100 + rng.Intn(201),
		}
		p.peers[s.ID] = s.PeerLatencyMS
	}
	return p
}

func (p *Provider) Name() string { return "sim" }

// TriggerScenario makes a site's metrics breach its thresholds for the
// given duration, after which generation returns to the baseline.
func (p *Provider) TriggerScenario(siteID string, kind Scenario, duration time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.baselines[siteID]; !ok {
		return fmt.Errorf("unknown site %q", siteID)
	}
	p.scenarios[siteID] = activeScenario{kind: kind, until: p.now().Add(duration)}
	return nil
}

// Sample generates the current telemetry for a site.
func (p *Provider) Sample(_ context.Context, siteID string) (site.MetricSample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	base, ok := p.baselines[siteID]
	if !ok {
		return site.MetricSample{}, fmt.Errorf("unknown site %q", siteID)
	}

	now := p.now()
	sc, scenarioActive := p.scenarios[siteID]
	if scenarioActive && now.After(sc.until) {
		delete(p.scenarios, siteID)
		scenarioActive = false
	}

	// Slow sinusoidal drift plus gaussian jitter around the baseline.
	drift := math.Sin(float64(now.Unix())/3600) * 5

	m := site.MetricSample{
		SiteID:            siteID,
		Timestamp:         now,
		CPUPercent:        clamp(base.cpu+drift+p.rng.NormFloat64()*3, 0, 100),
		GPUPercent:        clamp(base.gpu+drift*0.8+p.rng.NormFloat64()*3, 0, 100),
		MemoryPercent:     clamp(base.memory+drift*0.5+p.rng.NormFloat64()*2, 0, 100),
		QueueDepth:        maxInt(0, base.queue+int(p.rng.NormFloat64()*3)),
		ResponseTimeMS:    math.Max(1, base.response+drift+p.rng.NormFloat64()*5),
		RequestsPerSecond: maxInt(0, base.rps+int(p.rng.NormFloat64()*10)),
		ActiveConnections: maxInt(0, base.conns+int(p.rng.NormFloat64()*20)),
		PeerLatencyMS:     p.peerLatency(siteID),
	}

	if scenarioActive {
		p.applyScenario(sc.kind, &m)
	}
	return m, nil
}

func (p *Provider) peerLatency(siteID string) map[string]float64 {
	base := p.peers[siteID]
	out := make(map[string]float64, len(base))
	for peer, ms := range base {
		out[peer] = math.Max(0.5, ms+p.rng.NormFloat64()*2)
	}
	return out
}

func (p *Provider) applyScenario(kind Scenario, m *site.MetricSample) {
	switch kind {
	case ScenarioCPUSpike:
		m.CPUPercent = 85 + p.rng.Float64()*10
		m.GPUPercent = clamp(m.GPUPercent+30, 0, 100)
	case ScenarioLatencySpike:
		m.ResponseTimeMS = 120 + p.rng.Float64()*60
		for peer := range m.PeerLatencyMS {
			m.PeerLatencyMS[peer] += 20 + p.rng.Float64()*10
		}
	case ScenarioQueueFlood:
		m.QueueDepth = 60 + p.rng.Intn(41)
		m.ResponseTimeMS = 150 + p.rng.Float64()*100
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func maxInt(a, b int) int {
	if b > a {
		return b
	}
	return a
}
