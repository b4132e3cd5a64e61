package service

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Ramsi-K/EdgeMind/internal/config"
	"github.com/Ramsi-K/EdgeMind/internal/domain/site"
	"github.com/Ramsi-K/EdgeMind/internal/domain/threshold"
)

// BreachCallback is invoked synchronously for every emitted breach event.
type BreachCallback func(threshold.Event)

// breachState tracks one (site, metric) pair. breachStart is non-zero
// if and only if breached is true.
type breachState struct {
	breached    bool
	breachStart time.Time
	lastValue   float64
}

type registeredCallback struct {
	name string
	fn   BreachCallback
}

// ActiveBreach describes one currently-breached metric.
type ActiveBreach struct {
	Metric   string        `json:"metric"`
	Value    float64       `json:"value"`
	Duration time.Duration `json:"duration_ms"`
	Since    time.Time     `json:"since"`
}

// BreachStatus is a point-in-time view of a site's breached metrics.
type BreachStatus struct {
	SiteID            string         `json:"site_id"`
	HasActiveBreaches bool           `json:"has_active_breaches"`
	Active            []ActiveBreach `json:"active_breaches"`
}

// MonitorStats carries the monitor's operational counters.
type MonitorStats struct {
	TotalChecks       uint64  `json:"total_checks"`
	TotalEvents       uint64  `json:"total_events"`
	InvalidValues     uint64  `json:"invalid_values"`
	AvgCheckLatencyMS float64 `json:"avg_check_latency_ms"`
	ActiveCallbacks   int     `json:"active_callbacks"`
}

// ThresholdMonitor tracks per (site, metric) breach state and emits events
// on transitions. A metric held above its threshold across many checks
// produces exactly one breach event; returning below it produces exactly
// one recovery event carrying the elapsed breach duration.
type ThresholdMonitor struct {
	thresholds config.Thresholds

	mu           sync.Mutex
	states       map[string]map[string]*breachState
	callbacks    []registeredCallback
	eventCounter uint64
	checkCount   uint64
	invalidCount uint64
	lastCheckMS  map[string]float64

	now func() time.Time
}

// NewThresholdMonitor creates a monitor with the given limits.
func NewThresholdMonitor(thresholds config.Thresholds) *ThresholdMonitor {
	return &ThresholdMonitor{
		thresholds:  thresholds,
		states:      make(map[string]map[string]*breachState),
		lastCheckMS: make(map[string]float64),
		now:         time.Now,
	}
}

// AddBreachCallback registers fn under the given name. Callbacks run in
// registration order, only for breach events, after state is recorded.
// A panicking callback is recovered and logged; it never prevents other
// callbacks from running.
func (m *ThresholdMonitor) AddBreachCallback(name string, fn BreachCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, registeredCallback{name: name, fn: fn})
}

// RemoveBreachCallback unregisters the callback added under name.
func (m *ThresholdMonitor) RemoveBreachCallback(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cb := range m.callbacks {
		if cb.name == name {
			m.callbacks = append(m.callbacks[:i], m.callbacks[i+1:]...)
			return
		}
	}
}

// Check evaluates every configured metric in the sample against the
// thresholds and returns the resulting transition events. Steady states
// (still breached, still normal) emit nothing.
func (m *ThresholdMonitor) Check(sample site.MetricSample) []threshold.Event {
	start := time.Now()

	type metricCheck struct {
		name      string
		value     float64
		threshold float64
	}
	checks := []metricCheck{
		{threshold.MetricCPU, sample.CPUPercent, m.thresholds.CPUPercent},
		{threshold.MetricGPU, sample.GPUPercent, m.thresholds.GPUPercent},
		{threshold.MetricMemory, sample.MemoryPercent, m.thresholds.MemoryPercent},
		{threshold.MetricQueueDepth, float64(sample.QueueDepth), float64(m.thresholds.QueueDepth)},
		{threshold.MetricResponseTime, sample.ResponseTimeMS, m.thresholds.ResponseTimeMS},
	}
	for peer, latency := range sample.PeerLatencyMS {
		checks = append(checks, metricCheck{
			name:      threshold.MetricPeerLatencyPrefix + peer,
			value:     latency,
			threshold: m.thresholds.PeerLatencyMS,
		})
	}

	m.mu.Lock()
	var events []threshold.Event
	for _, c := range checks {
		if ev, ok := m.checkOne(sample.SiteID, c.name, c.value, c.threshold, sample.Timestamp); ok {
			events = append(events, ev)
		}
	}
	m.checkCount++
	m.lastCheckMS[sample.SiteID] = float64(time.Since(start).Microseconds()) / 1000
	callbacks := make([]registeredCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	if len(events) > 0 {
		slog.Info("threshold check produced events",
			"site_id", sample.SiteID,
			"events", len(events),
		)
	}

	for _, ev := range events {
		if ev.Kind != threshold.KindBreach {
			continue
		}
		for _, cb := range callbacks {
			m.invoke(cb, ev)
		}
	}

	return events
}

// invoke runs one callback with panic isolation.
func (m *ThresholdMonitor) invoke(cb registeredCallback, ev threshold.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("breach callback panicked",
				"callback", cb.name,
				"event_id", ev.ID,
				"panic", r,
			)
		}
	}()
	cb.fn(ev)
}

// checkOne runs the state machine for a single (site, metric) pair.
// Must be called with m.mu held.
func (m *ThresholdMonitor) checkOne(siteID, metric string, value, limit float64, ts time.Time) (threshold.Event, bool) {
	invalid := math.IsNaN(value) || math.IsInf(value, 0) || value < 0
	if invalid {
		m.invalidCount++
	}
	// Degenerate telemetry counts as breaching, never as recovering.
	breached := invalid || value > limit

	siteStates, ok := m.states[siteID]
	if !ok {
		siteStates = make(map[string]*breachState)
		m.states[siteID] = siteStates
	}
	st, ok := siteStates[metric]
	if !ok {
		st = &breachState{}
		siteStates[metric] = st
	}

	switch {
	case breached && !st.breached:
		st.breached = true
		st.breachStart = ts
		st.lastValue = value
		m.eventCounter++
		ev := threshold.Event{
			ID:        fmt.Sprintf("breach_%06d", m.eventCounter),
			Kind:      threshold.KindBreach,
			Severity:  threshold.Classify(metric, value, limit),
			Timestamp: ts,
			SiteID:    siteID,
			Metric:    metric,
			Value:     value,
			Threshold: limit,
		}
		slog.Warn("threshold breached",
			"site_id", siteID,
			"metric", metric,
			"value", value,
			"threshold", limit,
			"severity", ev.Severity,
		)
		return ev, true

	case !breached && st.breached:
		duration := ts.Sub(st.breachStart)
		st.breached = false
		st.breachStart = time.Time{}
		st.lastValue = value
		m.eventCounter++
		ev := threshold.Event{
			ID:             fmt.Sprintf("recovery_%06d", m.eventCounter),
			Kind:           threshold.KindRecovery,
			Severity:       threshold.SeverityLow,
			Timestamp:      ts,
			SiteID:         siteID,
			Metric:         metric,
			Value:          value,
			Threshold:      limit,
			BreachDuration: duration,
		}
		slog.Info("threshold recovered",
			"site_id", siteID,
			"metric", metric,
			"value", value,
			"breach_duration_ms", duration.Milliseconds(),
		)
		return ev, true

	case breached && st.breached:
		// Ongoing breach: track the value, suppress duplicate events.
		st.lastValue = value
	}

	return threshold.Event{}, false
}

// HasActiveBreaches reports whether any metric of the site is breached.
func (m *ThresholdMonitor) HasActiveBreaches(siteID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, st := range m.states[siteID] {
		if st.breached {
			return true
		}
	}
	return false
}

// GetBreachStatus returns all currently-breached metrics for a site.
func (m *ThresholdMonitor) GetBreachStatus(siteID string) BreachStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := BreachStatus{SiteID: siteID}
	now := m.now()
	for metric, st := range m.states[siteID] {
		if !st.breached {
			continue
		}
		status.Active = append(status.Active, ActiveBreach{
			Metric:   metric,
			Value:    st.lastValue,
			Duration: now.Sub(st.breachStart),
			Since:    st.breachStart,
		})
	}
	status.HasActiveBreaches = len(status.Active) > 0
	return status
}

// Stats returns the monitor's operational counters.
func (m *ThresholdMonitor) Stats() MonitorStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var avg float64
	if len(m.lastCheckMS) > 0 {
		var sum float64
		for _, v := range m.lastCheckMS {
			sum += v
		}
		avg = sum / float64(len(m.lastCheckMS))
	}

	return MonitorStats{
		TotalChecks:       m.checkCount,
		TotalEvents:       m.eventCounter,
		InvalidValues:     m.invalidCount,
		AvgCheckLatencyMS: avg,
		ActiveCallbacks:   len(m.callbacks),
	}
}

// Reset clears all breach state and counters.
func (m *ThresholdMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states = make(map[string]map[string]*breachState)
	m.lastCheckMS = make(map[string]float64)
	m.eventCounter = 0
	m.checkCount = 0
	m.invalidCount = 0
	slog.Info("threshold monitor state reset")
}
