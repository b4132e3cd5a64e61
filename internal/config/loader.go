package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "edgemind.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
// Sites and participants are YAML-only.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "EDGEMIND_PORT")
	setString(&cfg.Server.CORSOrigin, "EDGEMIND_CORS_ORIGIN")
	setString(&cfg.Logging.Level, "EDGEMIND_LOG_LEVEL")
	setString(&cfg.Logging.Service, "EDGEMIND_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "EDGEMIND_LOG_ASYNC")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LLM.URL, "EDGEMIND_LLM_URL")
	setString(&cfg.LLM.APIKey, "EDGEMIND_LLM_API_KEY")
	setString(&cfg.LLM.Model, "EDGEMIND_LLM_MODEL")
	setInt(&cfg.Breaker.MaxFailures, "EDGEMIND_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "EDGEMIND_BREAKER_TIMEOUT")
	setString(&cfg.Telemetry.Provider, "EDGEMIND_TELEMETRY_PROVIDER")
	setDuration(&cfg.Telemetry.Interval, "EDGEMIND_TELEMETRY_INTERVAL")
	setInt64(&cfg.Telemetry.Seed, "EDGEMIND_TELEMETRY_SEED")

	setFloat64(&cfg.Thresholds.CPUPercent, "EDGEMIND_THRESHOLD_CPU_PERCENT")
	setFloat64(&cfg.Thresholds.GPUPercent, "EDGEMIND_THRESHOLD_GPU_PERCENT")
	setFloat64(&cfg.Thresholds.MemoryPercent, "EDGEMIND_THRESHOLD_MEMORY_PERCENT")
	setInt(&cfg.Thresholds.QueueDepth, "EDGEMIND_THRESHOLD_QUEUE_DEPTH")
	setFloat64(&cfg.Thresholds.ResponseTimeMS, "EDGEMIND_THRESHOLD_RESPONSE_TIME_MS")
	setFloat64(&cfg.Thresholds.PeerLatencyMS, "EDGEMIND_THRESHOLD_PEER_LATENCY_MS")

	setInt(&cfg.Swarm.MinHealthySites, "EDGEMIND_SWARM_MIN_HEALTHY_SITES")
	setDuration(&cfg.Swarm.Deadline, "EDGEMIND_SWARM_DEADLINE")
	setInt(&cfg.Swarm.MaxParallel, "EDGEMIND_SWARM_MAX_PARALLEL")
	setFloat64(&cfg.Swarm.NoVoteConfidence, "EDGEMIND_SWARM_NO_VOTE_CONFIDENCE")
	setDuration(&cfg.Swarm.ExecutorTimeout, "EDGEMIND_SWARM_EXECUTOR_TIMEOUT")

	setInt(&cfg.History.Cap, "EDGEMIND_HISTORY_CAP")
}

// validate checks that required fields are set and internally consistent.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Thresholds.CPUPercent <= 0 || cfg.Thresholds.GPUPercent <= 0 ||
		cfg.Thresholds.MemoryPercent <= 0 || cfg.Thresholds.QueueDepth <= 0 ||
		cfg.Thresholds.ResponseTimeMS <= 0 || cfg.Thresholds.PeerLatencyMS <= 0 {
		return errors.New("thresholds must all be positive")
	}
	if cfg.Swarm.MinHealthySites < 1 {
		return errors.New("swarm.min_healthy_sites must be >= 1")
	}
	if cfg.Swarm.Deadline <= 0 {
		return errors.New("swarm.deadline must be positive")
	}
	if cfg.Swarm.MaxParallel < 1 {
		return errors.New("swarm.max_parallel must be >= 1")
	}
	if cfg.Swarm.NoVoteConfidence < 0 || cfg.Swarm.NoVoteConfidence > 1 {
		return errors.New("swarm.no_vote_confidence must be in [0,1]")
	}
	if cfg.History.Cap < 1 {
		return errors.New("history.cap must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if len(cfg.Sites) < 2 {
		return errors.New("at least two sites are required")
	}
	seen := make(map[string]bool, len(cfg.Sites))
	for _, s := range cfg.Sites {
		if s.ID == "" {
			return errors.New("site.id is required")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate site id %q", s.ID)
		}
		seen[s.ID] = true
	}
	for _, p := range cfg.Participants {
		if p.Name == "" || p.Kind == "" {
			return errors.New("participant.name and participant.kind are required")
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
