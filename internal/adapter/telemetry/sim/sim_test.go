package sim

import (
	"context"
	"testing"
	"time"

	"github.com/Ramsi-K/EdgeMind/internal/config"
)

func TestSample_WithinNormalBounds(t *testing.T) {
	p := New(config.Defaults().Sites, 42)
	thresholds := config.Defaults().Thresholds

	for i := 0; i < 50; i++ {
		for _, id := range []string{"MEC-A", "MEC-B", "MEC-C"} {
			s, err := p.Sample(context.Background(), id)
			if err != nil {
				t.Fatalf("Sample(%s): %v", id, err)
			}
			if s.SiteID != id {
				t.Errorf("site id = %s, want %s", s.SiteID, id)
			}
			if s.CPUPercent < 0 || s.CPUPercent > 100 {
				t.Errorf("cpu = %v out of range", s.CPUPercent)
			}
			if s.QueueDepth < 0 {
				t.Errorf("queue depth = %d negative", s.QueueDepth)
			}
			// Normal generation stays away from breach territory.
			if s.CPUPercent > thresholds.CPUPercent {
				t.Errorf("normal sample breached cpu threshold: %v", s.CPUPercent)
			}
			if len(s.PeerLatencyMS) != 2 {
				t.Errorf("peer latency entries = %d, want 2", len(s.PeerLatencyMS))
			}
		}
	}
}

func TestSample_UnknownSite(t *testing.T) {
	p := New(config.Defaults().Sites, 42)
	if _, err := p.Sample(context.Background(), "MEC-X"); err == nil {
		t.Error("no error for unknown site")
	}
}

func TestTriggerScenario_CPUSpike(t *testing.T) {
	p := New(config.Defaults().Sites, 42)
	thresholds := config.Defaults().Thresholds

	if err := p.TriggerScenario("MEC-A", ScenarioCPUSpike, time.Minute); err != nil {
		t.Fatalf("TriggerScenario: %v", err)
	}

	s, err := p.Sample(context.Background(), "MEC-A")
	if err != nil {
		t.Fatal(err)
	}
	if s.CPUPercent <= thresholds.CPUPercent {
		t.Errorf("cpu = %v during spike, want > %v", s.CPUPercent, thresholds.CPUPercent)
	}

	// Other sites are unaffected.
	other, err := p.Sample(context.Background(), "MEC-B")
	if err != nil {
		t.Fatal(err)
	}
	if other.CPUPercent > thresholds.CPUPercent {
		t.Errorf("unaffected site breached: %v", other.CPUPercent)
	}
}

func TestTriggerScenario_Expires(t *testing.T) {
	p := New(config.Defaults().Sites, 42)
	base := time.Now()
	p.now = func() time.Time { return base }

	if err := p.TriggerScenario("MEC-A", ScenarioQueueFlood, 30*time.Second); err != nil {
		t.Fatal(err)
	}

	s, _ := p.Sample(context.Background(), "MEC-A")
	if s.QueueDepth < 60 {
		t.Errorf("queue depth = %d during flood, want >= 60", s.QueueDepth)
	}

	base = base.Add(time.Minute)
	s, _ = p.Sample(context.Background(), "MEC-A")
	if s.QueueDepth >= 60 {
		t.Errorf("queue depth = %d after scenario expiry", s.QueueDepth)
	}
}

func TestTriggerScenario_UnknownSite(t *testing.T) {
	p := New(config.Defaults().Sites, 42)
	if err := p.TriggerScenario("MEC-X", ScenarioCPUSpike, time.Minute); err == nil {
		t.Error("no error for unknown site")
	}
}

func TestSample_Reproducible(t *testing.T) {
	a := New(config.Defaults().Sites, 7)
	b := New(config.Defaults().Sites, 7)

	sa, _ := a.Sample(context.Background(), "MEC-A")
	sb, _ := b.Sample(context.Background(), "MEC-A")
	if sa.CPUPercent != sb.CPUPercent || sa.QueueDepth != sb.QueueDepth {
		t.Errorf("same seed diverged: %+v vs %+v", sa, sb)
	}
}
