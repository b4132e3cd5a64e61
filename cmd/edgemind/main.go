package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	emhttp "github.com/Ramsi-K/EdgeMind/internal/adapter/http"
	emnats "github.com/Ramsi-K/EdgeMind/internal/adapter/nats"
	emotel "github.com/Ramsi-K/EdgeMind/internal/adapter/otel"
	"github.com/Ramsi-K/EdgeMind/internal/adapter/participant/llm"
	_ "github.com/Ramsi-K/EdgeMind/internal/adapter/participant/rule"
	"github.com/Ramsi-K/EdgeMind/internal/adapter/telemetry/sim"
	"github.com/Ramsi-K/EdgeMind/internal/adapter/ws"
	"github.com/Ramsi-K/EdgeMind/internal/config"
	"github.com/Ramsi-K/EdgeMind/internal/domain/threshold"
	"github.com/Ramsi-K/EdgeMind/internal/logger"
	"github.com/Ramsi-K/EdgeMind/internal/port/executor"
	"github.com/Ramsi-K/EdgeMind/internal/port/participant"
	"github.com/Ramsi-K/EdgeMind/internal/port/telemetry"
	"github.com/Ramsi-K/EdgeMind/internal/resilience"
	"github.com/Ramsi-K/EdgeMind/internal/service"
)

func main() {
	fallback := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(fallback)

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"sites", len(cfg.Sites),
		"participants", len(cfg.Participants),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Observability ---

	metrics, err := emotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		shutdownMeter, err := emotel.InitMeter(ctx, cfg.Logging.Service, endpoint)
		if err != nil {
			return fmt.Errorf("otel meter: %w", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = shutdownMeter(shutdownCtx)
		}()
	}

	// --- Infrastructure ---

	hub := ws.NewHub()

	var bus *emnats.Bus
	var exec executor.Executor
	if cfg.NATS.URL != "" {
		bus, err = emnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = bus.Close() }()
		exec = emnats.NewDecisionExecutor(bus)
	}

	// --- Services ---

	registry := service.NewSiteRegistry(cfg.Sites)
	monitor := service.NewThresholdMonitor(cfg.Thresholds)
	history := service.NewHistory(cfg.History.Cap)

	participants, err := buildParticipants(cfg)
	if err != nil {
		return fmt.Errorf("participants: %w", err)
	}
	slog.Info("participants ready", "count", len(participants), "available_kinds", participant.Available())

	coordinator := service.NewSwarmCoordinator(
		cfg.Swarm, registry, monitor, participants, exec, history, hub, metrics,
	)

	monitor.AddBreachCallback("coordinator", func(ev threshold.Event) {
		coordinator.ActivateOnBreach(ctx, ev)
	})
	if bus != nil {
		monitor.AddBreachCallback("nats", func(ev threshold.Event) {
			if err := bus.PublishBreach(ctx, ev); err != nil {
				slog.Error("breach publish failed", "site", ev.SiteID, "error", err)
			}
		})
	}

	var provider telemetry.Provider
	if cfg.Telemetry.Provider == "sim" {
		provider = sim.New(cfg.Sites, cfg.Telemetry.Seed)
	}
	ingestor := service.NewIngestor(registry, monitor, history, hub, metrics, provider, cfg.Telemetry.Interval)
	if provider != nil {
		go ingestor.Run(ctx)
	}

	// --- HTTP ---

	handlers := &emhttp.Handlers{
		Registry:    registry,
		Monitor:     monitor,
		History:     history,
		Coordinator: coordinator,
		Ingestor:    ingestor,
		Hub:         hub,
	}

	r := chi.NewRouter()

	r.Use(emhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(emhttp.SecurityHeaders)
	r.Use(emhttp.Logger)
	r.Use(emotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	emhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

// buildParticipants constructs all configured participants through the
// factory registry. LLM participants inherit the global llm section for
// any option the participant entry leaves unset.
func buildParticipants(cfg *config.Config) ([]participant.Participant, error) {
	out := make([]participant.Participant, 0, len(cfg.Participants))
	for _, pc := range cfg.Participants {
		options := make(map[string]string, len(pc.Options)+3)
		for k, v := range pc.Options {
			options[k] = v
		}
		if pc.Kind == "llm" {
			if options["url"] == "" {
				options["url"] = cfg.LLM.URL
			}
			if options["api_key"] == "" {
				options["api_key"] = cfg.LLM.APIKey
			}
			if options["model"] == "" {
				options["model"] = cfg.LLM.Model
			}
		}

		p, err := participant.New(pc.Kind, pc.Name, options)
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", pc.Name, err)
		}
		if lp, ok := p.(*llm.Participant); ok {
			lp.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
		}
		out = append(out, p)
	}
	return out, nil
}
