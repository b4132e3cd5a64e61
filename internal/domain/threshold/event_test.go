package threshold

import (
	"math"
	"testing"
)

func TestClassify_ResourceMetrics(t *testing.T) {
	tests := []struct {
		name      string
		metric    string
		value     float64
		threshold float64
		want      Severity
	}{
		{"just over threshold", MetricCPU, 81, 80, SeverityLow},
		{"five percent over", MetricCPU, 84.5, 80, SeverityMedium},
		{"ten percent over", MetricCPU, 88.5, 80, SeverityHigh},
		{"twenty percent over", MetricCPU, 96.5, 80, SeverityCritical},
		{"gpu high bracket", MetricGPU, 89, 80, SeverityHigh},
		{"memory near limit", MetricMemory, 95, 80, SeverityHigh},
		{"memory critical", MetricMemory, 102.5, 85, SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.metric, tt.value, tt.threshold); got != tt.want {
				t.Errorf("Classify(%s, %v, %v) = %s, want %s",
					tt.metric, tt.value, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestClassify_QueueAndLatency(t *testing.T) {
	tests := []struct {
		name      string
		metric    string
		value     float64
		threshold float64
		want      Severity
	}{
		{"queue low", MetricQueueDepth, 55, 50, SeverityLow},
		{"queue medium", MetricQueueDepth, 61, 50, SeverityMedium},
		{"queue high", MetricQueueDepth, 76, 50, SeverityHigh},
		{"queue critical", MetricQueueDepth, 110, 50, SeverityCritical},
		{"response low", MetricResponseTime, 120, 100, SeverityLow},
		{"response medium", MetricResponseTime, 160, 100, SeverityMedium},
		{"response high", MetricResponseTime, 220, 100, SeverityHigh},
		{"response critical", MetricResponseTime, 310, 100, SeverityCritical},
		{"peer latency uses latency brackets", MetricPeerLatencyPrefix + "MEC-B", 45, 20, SeverityHigh},
		{"unknown metric uses default brackets", "custom_metric", 31, 20, SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.metric, tt.value, tt.threshold); got != tt.want {
				t.Errorf("Classify(%s, %v, %v) = %s, want %s",
					tt.metric, tt.value, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestClassify_InvalidValues(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1} {
		if got := Classify(MetricCPU, v, 80); got != SeverityCritical {
			t.Errorf("Classify(cpu, %v, 80) = %s, want critical", v, got)
		}
	}
}

func TestClassify_Monotonic(t *testing.T) {
	rank := map[Severity]int{
		SeverityLow:      0,
		SeverityMedium:   1,
		SeverityHigh:     2,
		SeverityCritical: 3,
	}
	prev := SeverityLow
	for v := 81.0; v <= 120; v++ {
		got := Classify(MetricCPU, v, 80)
		if rank[got] < rank[prev] {
			t.Fatalf("severity regressed from %s to %s at value %v", prev, got, v)
		}
		prev = got
	}
}
