// Package site defines the monitored compute site entities.
package site

import (
	"math"
	"time"
)

// MetricSample is one site's point-in-time telemetry. Immutable once created.
type MetricSample struct {
	SiteID            string             `json:"site_id"`
	Timestamp         time.Time          `json:"timestamp"`
	CPUPercent        float64            `json:"cpu_percent"`
	GPUPercent        float64            `json:"gpu_percent"`
	MemoryPercent     float64            `json:"memory_percent"`
	QueueDepth        int                `json:"queue_depth"`
	ResponseTimeMS    float64            `json:"response_time_ms"`
	PeerLatencyMS     map[string]float64 `json:"peer_latency_ms"`
	RequestsPerSecond int                `json:"requests_per_second"`
	ActiveConnections int                `json:"active_connections"`
}

// LoadScore derives a [0,1] utilization score from resource metrics.
// Queue pressure saturates at 100 pending requests.
func (m MetricSample) LoadScore() float64 {
	queue := math.Min(float64(m.QueueDepth), 100) / 100
	score := 0.35*clampPct(m.CPUPercent) +
		0.25*clampPct(m.GPUPercent) +
		0.25*clampPct(m.MemoryPercent) +
		0.15*queue
	return math.Min(math.Max(score, 0), 1)
}

func clampPct(v float64) float64 {
	if math.IsNaN(v) || v > 100 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v / 100
}

// Site is a monitored compute site and its last-known telemetry.
// Sites are never deleted, only marked failed or recovered.
type Site struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Location   string        `json:"location"`
	Failed     bool          `json:"failed"`
	LastSample *MetricSample `json:"last_sample,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// LoadScore returns the site's current load score, or 1 (fully loaded)
// when no telemetry has arrived yet or the site is marked failed.
func (s Site) LoadScore() float64 {
	if s.Failed || s.LastSample == nil {
		return 1
	}
	return s.LastSample.LoadScore()
}

// Candidate is a site's view handed to coordination participants.
type Candidate struct {
	SiteID    string  `json:"site_id"`
	LoadScore float64 `json:"load_score"`
	Healthy   bool    `json:"healthy"`
}
