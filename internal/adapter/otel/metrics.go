package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "edgemind"

// Metrics holds all EdgeMind metric instruments.
type Metrics struct {
	ChecksTotal     metric.Int64Counter
	BreachesTotal   metric.Int64Counter
	RecoveriesTotal metric.Int64Counter
	InvalidSamples  metric.Int64Counter
	RoundsTotal     metric.Int64Counter
	VotesCollected  metric.Int64Counter
	RoundDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ChecksTotal, err = meter.Int64Counter("edgemind.threshold.checks",
		metric.WithDescription("Number of metric samples checked"))
	if err != nil {
		return nil, err
	}

	m.BreachesTotal, err = meter.Int64Counter("edgemind.threshold.breaches",
		metric.WithDescription("Number of breach events emitted"))
	if err != nil {
		return nil, err
	}

	m.RecoveriesTotal, err = meter.Int64Counter("edgemind.threshold.recoveries",
		metric.WithDescription("Number of recovery events emitted"))
	if err != nil {
		return nil, err
	}

	m.InvalidSamples, err = meter.Int64Counter("edgemind.threshold.invalid_samples",
		metric.WithDescription("Number of NaN, Inf or negative metric values seen"))
	if err != nil {
		return nil, err
	}

	m.RoundsTotal, err = meter.Int64Counter("edgemind.swarm.rounds",
		metric.WithDescription("Number of coordination rounds"))
	if err != nil {
		return nil, err
	}

	m.VotesCollected, err = meter.Int64Counter("edgemind.swarm.votes",
		metric.WithDescription("Number of participant votes collected"))
	if err != nil {
		return nil, err
	}

	m.RoundDuration, err = meter.Float64Histogram("edgemind.swarm.round_duration_seconds",
		metric.WithDescription("Coordination round duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
