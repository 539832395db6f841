package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/pagelens/analyzer"
	"github.com/use-agent/pagelens/api"
	"github.com/use-agent/pagelens/bulk"
	"github.com/use-agent/pagelens/cache"
	"github.com/use-agent/pagelens/config"
	"github.com/use-agent/pagelens/fetcher"
	"github.com/use-agent/pagelens/registry"
	"github.com/use-agent/pagelens/runner"
	"github.com/use-agent/pagelens/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pagelens starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"bulkWorkers", cfg.Bulk.Workers,
		"disabledTools", cfg.Tools.Disabled,
	)

	// ── 3. Fetcher and optional capabilities ────────────────────────
	f := fetcher.New(fetcher.Options{
		Timeout:      cfg.Fetcher.Timeout,
		MaxBodyBytes: cfg.Fetcher.MaxBodyBytes,
		MaxRedirects: cfg.Fetcher.MaxRedirects,
		UserAgent:    cfg.Fetcher.UserAgent,
		Fingerprint:  cfg.Fetcher.TLSFingerprint,
	})

	deps := analyzer.Deps{Fetcher: f, ProbeTimeout: cfg.Fetcher.ProbeTimeout}
	capabilities := map[string]bool{analyzer.CapabilityWhois: cfg.Whois.Enabled}
	var available []string
	if cfg.Whois.Enabled {
		deps.Whois = analyzer.NewNetWhois(cfg.Whois.Timeout)
		available = append(available, analyzer.CapabilityWhois)
	}

	// ── 4. Registry and runner ──────────────────────────────────────
	reg, err := registry.Default(deps)
	if err != nil {
		slog.Error("failed to build tool registry", "error", err)
		os.Exit(1)
	}
	run := runner.New(reg, f, available...)
	slog.Info("tool registry ready", "tools", reg.Len(), "capabilities", available)

	// ── 5. Cache and bulk jobs ──────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)

	pacer := bulk.NewHostPacer(cfg.Bulk.HostRPS, 10*time.Minute)
	defer pacer.Stop()
	store := bulk.NewJobStore(cfg.Bulk.JobTTL)
	defer store.Stop()
	svc := &bulk.Service{
		Runner:   bulk.NewRunner(run, cfg.Bulk.Workers, pacer),
		Store:    store,
		Notifier: webhook.NewNotifier(cfg.Bulk.WebhookSecret),
	}

	// ── 6. Setup router ─────────────────────────────────────────────
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()
	router := api.NewRouter(rootCtx, cfg, api.Deps{
		Runner:       run,
		Bulk:         svc,
		Cache:        cc,
		Capabilities: capabilities,
		StartTime:    time.Now(),
	})

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("pagelens stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
