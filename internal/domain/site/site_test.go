package site

import (
	"math"
	"testing"
	"time"
)

func TestMetricSample_LoadScore(t *testing.T) {
	tests := []struct {
		name   string
		sample MetricSample
		want   float64
	}{
		{
			name:   "idle site",
			sample: MetricSample{},
			want:   0,
		},
		{
			name: "fully saturated",
			sample: MetricSample{
				CPUPercent:    100,
				GPUPercent:    100,
				MemoryPercent: 100,
				QueueDepth:    100,
			},
			want: 1,
		},
		{
			name: "weighted mix",
			sample: MetricSample{
				CPUPercent:    50,
				GPUPercent:    40,
				MemoryPercent: 60,
				QueueDepth:    20,
			},
			want: 0.35*0.5 + 0.25*0.4 + 0.25*0.6 + 0.15*0.2,
		},
		{
			name: "queue saturates at 100",
			sample: MetricSample{
				QueueDepth: 500,
			},
			want: 0.15,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sample.LoadScore()
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("LoadScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetricSample_LoadScore_DegenerateValues(t *testing.T) {
	// NaN and out-of-range percentages clamp instead of poisoning the score.
	s := MetricSample{
		CPUPercent:    math.NaN(),
		GPUPercent:    150,
		MemoryPercent: -20,
		QueueDepth:    0,
	}
	got := s.LoadScore()
	want := 0.35*1 + 0.25*1 + 0.25*0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("LoadScore() = %v, want %v", got, want)
	}
	if math.IsNaN(got) {
		t.Error("LoadScore() returned NaN")
	}
}

func TestSite_LoadScore(t *testing.T) {
	sample := &MetricSample{CPUPercent: 40, Timestamp: time.Now()}

	s := Site{ID: "MEC-A", LastSample: sample}
	if got := s.LoadScore(); got >= 1 {
		t.Errorf("healthy site LoadScore() = %v, want < 1", got)
	}

	s.Failed = true
	if got := s.LoadScore(); got != 1 {
		t.Errorf("failed site LoadScore() = %v, want 1", got)
	}

	empty := Site{ID: "MEC-B"}
	if got := empty.LoadScore(); got != 1 {
		t.Errorf("no-telemetry site LoadScore() = %v, want 1", got)
	}
}
