package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Ramsi-K/EdgeMind/internal/config"
)

// captureHandler collects slog.Records for assertions.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
	block   chan struct{} // when non-nil, Handle waits until closed
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func TestAsyncHandler_DeliversOnClose(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 16, 1)

	for i := 0; i < 5; i++ {
		rec := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
		if err := ah.Handle(context.Background(), rec); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	ah.Close()

	if got := inner.count(); got != 5 {
		t.Fatalf("delivered %d records, want 5", got)
	}
}

func TestAsyncHandler_DropsWhenFull(t *testing.T) {
	inner := &captureHandler{block: make(chan struct{})}
	ah := NewAsyncHandler(inner, 1, 1)

	// Worker is stuck on the first record; channel holds one more.
	// Everything past that is dropped, never blocked on.
	for i := 0; i < 10; i++ {
		rec := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
		_ = ah.Handle(context.Background(), rec)
	}

	if ah.DroppedCount() == 0 {
		t.Error("no records dropped with a full channel")
	}

	close(inner.block)
	ah.Close()
}

func TestAsyncHandler_WithAttrsSharesChannel(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 16, 1)

	derived := ah.WithAttrs([]slog.Attr{slog.String("component", "monitor")})
	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
	if err := derived.Handle(context.Background(), rec); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	ah.Close()

	if got := inner.count(); got != 1 {
		t.Fatalf("delivered %d records through derived handler, want 1", got)
	}
}

func TestNew_SyncAndAsync(t *testing.T) {
	log, closer := New(config.Logging{Level: "debug", Service: "test"})
	if log == nil {
		t.Fatal("nil logger")
	}
	closer.Close()

	log, closer = New(config.Logging{Level: "info", Service: "test", Async: true})
	log.Info("async record")
	closer.Close()
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
