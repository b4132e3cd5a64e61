// Package threshold defines breach events and severity classification.
package threshold

import (
	"math"
	"strings"
	"time"
)

// Severity grades how far past its threshold a metric has moved.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// EventKind distinguishes breach entry from recovery.
type EventKind string

const (
	KindBreach   EventKind = "breach"
	KindRecovery EventKind = "recovery"
)

// Metric names produced by the monitor. Peer latency metrics are prefixed
// with MetricPeerLatencyPrefix followed by the peer site id.
const (
	MetricCPU               = "cpu_utilization"
	MetricGPU               = "gpu_utilization"
	MetricMemory            = "memory_utilization"
	MetricQueueDepth        = "queue_depth"
	MetricResponseTime      = "response_time"
	MetricPeerLatencyPrefix = "peer_latency_"
)

// Event is an immutable record of a breach-state transition.
type Event struct {
	ID             string        `json:"id"`
	Kind           EventKind     `json:"kind"`
	Severity       Severity      `json:"severity"`
	Timestamp      time.Time     `json:"timestamp"`
	SiteID         string        `json:"site_id"`
	Metric         string        `json:"metric"`
	Value          float64       `json:"value"`
	Threshold      float64       `json:"threshold"`
	BreachDuration time.Duration `json:"breach_duration_ms"` // 0 for new breaches
}

// Classify grades a breach by the ratio of value to threshold. The brackets
// differ by metric family: resource utilization reacts to small overshoots,
// queue depth to moderate ones, latency only to multiples. Invalid values
// (NaN, ±Inf, negative) classify as critical since the ratio is meaningless.
func Classify(metric string, value, thresholdValue float64) Severity {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return SeverityCritical
	}

	r := value / thresholdValue

	switch {
	case metric == MetricCPU || metric == MetricGPU || metric == MetricMemory:
		return bracket(r, 1.20, 1.10, 1.05)
	case metric == MetricQueueDepth:
		return bracket(r, 2.0, 1.5, 1.2)
	case metric == MetricResponseTime || strings.HasPrefix(metric, MetricPeerLatencyPrefix):
		return bracket(r, 3.0, 2.0, 1.5)
	default:
		return bracket(r, 2.0, 1.5, 1.2)
	}
}

func bracket(r, critical, high, medium float64) Severity {
	switch {
	case r >= critical:
		return SeverityCritical
	case r >= high:
		return SeverityHigh
	case r >= medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
