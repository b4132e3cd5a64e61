package nats

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Ramsi-K/EdgeMind/internal/domain/swarm"
	"github.com/Ramsi-K/EdgeMind/internal/domain/threshold"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Bus {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	b, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return b
}

func waitFor(t *testing.T, done chan struct{}, what string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestBus_PublishBreachRoundTrip(t *testing.T) {
	b := testConnect(t)
	ctx := context.Background()

	siteID := "test-" + t.Name()
	var (
		mu       sync.Mutex
		received *threshold.Event
		done     = make(chan struct{})
		once     sync.Once
	)

	stop, err := b.Subscribe(ctx, subjectBreaches+siteID, func(_ string, data []byte) error {
		var ev threshold.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		mu.Lock()
		received = &ev
		mu.Unlock()
		once.Do(func() { close(done) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	want := threshold.Event{
		ID:       "breach_000001",
		Kind:     threshold.KindBreach,
		Severity: threshold.SeverityHigh,
		SiteID:   siteID,
		Metric:   threshold.MetricCPU,
		Value:    92,
	}
	if err := b.PublishBreach(ctx, want); err != nil {
		t.Fatalf("PublishBreach: %v", err)
	}

	waitFor(t, done, "breach event")

	mu.Lock()
	defer mu.Unlock()
	if received.ID != want.ID || received.SiteID != want.SiteID {
		t.Errorf("received %+v, want %+v", received, want)
	}
}

func TestDecisionExecutor_PublishesToSelectedSite(t *testing.T) {
	b := testConnect(t)
	ctx := context.Background()

	siteID := "test-" + t.Name()
	done := make(chan struct{})
	var once sync.Once

	stop, err := b.Subscribe(ctx, subjectDecisions+siteID, func(_ string, data []byte) error {
		var d swarm.Decision
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		once.Do(func() { close(done) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	exec := NewDecisionExecutor(b)
	if exec.Name() != "nats" {
		t.Errorf("Name() = %s", exec.Name())
	}
	err = exec.Execute(ctx, swarm.Decision{
		ID:           "d-1",
		SelectedSite: siteID,
		Confidence:   0.8,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	waitFor(t, done, "decision")
}
