// Package config provides hierarchical configuration loading for EdgeMind.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the EdgeMind core service.
type Config struct {
	Server       Server        `yaml:"server"`
	Logging      Logging       `yaml:"logging"`
	NATS         NATS          `yaml:"nats"`
	LLM          LLM           `yaml:"llm"`
	Breaker      Breaker       `yaml:"breaker"`
	Telemetry    Telemetry     `yaml:"telemetry"`
	Thresholds   Thresholds    `yaml:"thresholds"`
	Swarm        Swarm         `yaml:"swarm"`
	History      History       `yaml:"history"`
	Sites        []Site        `yaml:"sites"`
	Participants []Participant `yaml:"participants"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// NATS holds NATS JetStream configuration. An empty URL disables the
// NATS executor and event export.
type NATS struct {
	URL string `yaml:"url"`
}

// LLM holds configuration for the LLM-backed participant (an
// OpenAI-compatible chat completion endpoint).
type LLM struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Breaker holds circuit breaker configuration for outbound calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Telemetry holds sample ingestion configuration.
type Telemetry struct {
	Provider string        `yaml:"provider"` // "sim", or "" to disable the ingest loop
	Interval time.Duration `yaml:"interval"`
	Seed     int64         `yaml:"seed"` // 0 = time-seeded
}

// Thresholds holds the per-metric breach limits shared by every check.
type Thresholds struct {
	CPUPercent     float64 `yaml:"cpu_percent"`
	GPUPercent     float64 `yaml:"gpu_percent"`
	MemoryPercent  float64 `yaml:"memory_percent"`
	QueueDepth     int     `yaml:"queue_depth"`
	ResponseTimeMS float64 `yaml:"response_time_ms"`
	PeerLatencyMS  float64 `yaml:"peer_latency_ms"`
}

// Swarm holds coordination round configuration.
type Swarm struct {
	MinHealthySites  int           `yaml:"min_healthy_sites"`  // quorum gate (default: 2)
	Deadline         time.Duration `yaml:"deadline"`           // hard bound on a round (default: 5s)
	MaxParallel      int           `yaml:"max_parallel"`       // concurrent participant polls (default: 4)
	NoVoteConfidence float64       `yaml:"no_vote_confidence"` // decision confidence when no votes arrive (default: 0.3)
	ExecutorTimeout  time.Duration `yaml:"executor_timeout"`   // bound on the execution callback (default: 2s)
}

// History holds event log configuration.
type History struct {
	Cap int `yaml:"cap"` // max retained events per log (default: 100)
}

// Site describes one monitored compute site.
type Site struct {
	ID            string             `yaml:"id"`
	Name          string             `yaml:"name"`
	Location      string             `yaml:"location"`
	PeerLatencyMS map[string]float64 `yaml:"peer_latency_ms"` // baseline latency to peer sites
}

// Participant selects and configures one coordination participant.
type Participant struct {
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"` // registered factory: "rule", "llm"
	Options map[string]string `yaml:"options"`
}

// Defaults returns a Config with sensible default values for local development.
// Threshold values and the three-site topology mirror the reference deployment.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Logging: Logging{
			Level:   "info",
			Service: "edgemind-core",
		},
		NATS: NATS{
			URL: "nats://localhost:4222",
		},
		LLM: LLM{
			URL:   "http://localhost:4000",
			Model: "openai/gpt-4o-mini",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Telemetry: Telemetry{
			Provider: "sim",
			Interval: time.Second,
		},
		Thresholds: Thresholds{
			CPUPercent:     80.0,
			GPUPercent:     80.0,
			MemoryPercent:  85.0,
			QueueDepth:     50,
			ResponseTimeMS: 100.0,
			PeerLatencyMS:  20.0,
		},
		Swarm: Swarm{
			MinHealthySites:  2,
			Deadline:         5 * time.Second,
			MaxParallel:      4,
			NoVoteConfidence: 0.3,
			ExecutorTimeout:  2 * time.Second,
		},
		History: History{
			Cap: 100,
		},
		Sites: []Site{
			{
				ID:            "MEC-A",
				Name:          "Site Alpha",
				Location:      "New York, NY",
				PeerLatencyMS: map[string]float64{"MEC-B": 15.0, "MEC-C": 25.0},
			},
			{
				ID:            "MEC-B",
				Name:          "Site Beta",
				Location:      "Chicago, IL",
				PeerLatencyMS: map[string]float64{"MEC-A": 15.0, "MEC-C": 18.0},
			},
			{
				ID:            "MEC-C",
				Name:          "Site Gamma",
				Location:      "Los Angeles, CA",
				PeerLatencyMS: map[string]float64{"MEC-A": 25.0, "MEC-B": 18.0},
			},
		},
		Participants: []Participant{
			{Name: "balancer", Kind: "rule"},
			{Name: "planner", Kind: "rule"},
		},
	}
}
