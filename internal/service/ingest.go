package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	edgeotel "github.com/Ramsi-K/EdgeMind/internal/adapter/otel"
	"github.com/Ramsi-K/EdgeMind/internal/domain/site"
	"github.com/Ramsi-K/EdgeMind/internal/domain/threshold"
	"github.com/Ramsi-K/EdgeMind/internal/port/broadcast"
	"github.com/Ramsi-K/EdgeMind/internal/port/telemetry"
)

// Broadcast event types emitted by the ingest pipeline.
const (
	EventThresholdBreach   = "threshold.breach"
	EventThresholdRecovery = "threshold.recovery"
)

// Ingestor feeds metric samples through the registry and the threshold
// monitor, records the resulting events and fans them out to observers.
type Ingestor struct {
	registry *SiteRegistry
	monitor  *ThresholdMonitor
	history  *History
	hub      broadcast.Broadcaster // optional
	metrics  *edgeotel.Metrics     // optional
	provider telemetry.Provider    // optional, used by Run
	interval time.Duration
}

// NewIngestor creates an ingest pipeline. hub, metrics and provider may
// be nil; with a nil provider Run is a no-op and only Ingest works.
func NewIngestor(
	registry *SiteRegistry,
	monitor *ThresholdMonitor,
	history *History,
	hub broadcast.Broadcaster,
	metrics *edgeotel.Metrics,
	provider telemetry.Provider,
	interval time.Duration,
) *Ingestor {
	return &Ingestor{
		registry: registry,
		monitor:  monitor,
		history:  history,
		hub:      hub,
		metrics:  metrics,
		provider: provider,
		interval: interval,
	}
}

// Ingest processes one sample: the registry keeps it as the site's latest
// state, the monitor evaluates every metric against its threshold, and
// each emitted event is recorded and broadcast. Breach callbacks fire
// inside monitor.Check, so by the time Ingest returns any coordination
// triggered by this sample has already run.
func (i *Ingestor) Ingest(ctx context.Context, sample site.MetricSample) ([]threshold.Event, error) {
	if err := i.registry.PushSample(sample); err != nil {
		return nil, fmt.Errorf("push sample: %w", err)
	}

	events := i.monitor.Check(sample)

	if i.metrics != nil {
		i.metrics.ChecksTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("site", sample.SiteID)))
	}

	for _, ev := range events {
		if i.history != nil {
			i.history.AppendThreshold(ev)
		}
		evType := EventThresholdBreach
		if ev.Kind == threshold.KindRecovery {
			evType = EventThresholdRecovery
		}
		if i.hub != nil {
			i.hub.BroadcastEvent(ctx, evType, ev)
		}
		if i.metrics != nil {
			attrs := metric.WithAttributes(
				attribute.String("site", ev.SiteID),
				attribute.String("metric", ev.Metric),
				attribute.String("severity", string(ev.Severity)),
			)
			switch ev.Kind {
			case threshold.KindBreach:
				i.metrics.BreachesTotal.Add(ctx, 1, attrs)
			case threshold.KindRecovery:
				i.metrics.RecoveriesTotal.Add(ctx, 1, attrs)
			}
		}
	}
	return events, nil
}

// Run polls the telemetry provider for every registered site on a fixed
// interval until ctx is cancelled. Provider errors are logged and the
// site is skipped for that tick.
func (i *Ingestor) Run(ctx context.Context) {
	if i.provider == nil {
		return
	}
	slog.Info("ingest loop started",
		"provider", i.provider.Name(),
		"interval", i.interval,
	)
	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ingest loop stopped")
			return
		case <-ticker.C:
			for _, id := range i.registry.IDs() {
				sample, err := i.provider.Sample(ctx, id)
				if err != nil {
					slog.Warn("telemetry sample failed", "site", id, "error", err)
					continue
				}
				if _, err := i.Ingest(ctx, sample); err != nil {
					slog.Warn("sample ingest failed", "site", id, "error", err)
				}
			}
		}
	}
}
