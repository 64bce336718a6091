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

	"github.com/use-agent/stayscan/api"
	"github.com/use-agent/stayscan/cleaner"
	"github.com/use-agent/stayscan/config"
	"github.com/use-agent/stayscan/engine"
	"github.com/use-agent/stayscan/extract"
	"github.com/use-agent/stayscan/jobs"
	"github.com/use-agent/stayscan/scraper"
	"github.com/use-agent/stayscan/validator"
	"github.com/use-agent/stayscan/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("stayscan starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"fetchMode", cfg.Engine.FetchMode,
		"store", cfg.Store.Backend,
	)

	v, err := validator.New(cfg.Listing.HostPattern)
	if err != nil {
		slog.Error("invalid listing host pattern", "error", err)
		os.Exit(1)
	}

	// ── 3. Launch the browser (optional) ────────────────────────────
	var br *scraper.Browser
	if cfg.Browser.Enabled && cfg.Engine.FetchMode != "http" && cfg.Engine.FetchMode != "fixture" {
		br, err = scraper.NewBrowser(cfg.Browser, cfg.Scraper)
		if err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer br.Close()
	}

	// ── 4. Build the content fetcher ────────────────────────────────
	fetcher, memory, err := newFetcher(cfg, br)
	if err != nil {
		slog.Error("failed to build fetcher", "error", err)
		os.Exit(1)
	}
	if memory != nil {
		defer memory.Stop()
	}

	// ── 5. Open the job store ───────────────────────────────────────
	store, closeStore, err := newStore(cfg)
	if err != nil {
		slog.Error("failed to open job store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// ── 6. Start the orchestrator ───────────────────────────────────
	extractor := extract.NewExtractor(cfg.Listing.BaseURL, cleaner.NewCleaner())
	orch := jobs.NewOrchestrator(cfg.Jobs, store, v, fetcher, extractor)
	if cfg.Webhook.URL != "" {
		orch.SetNotifier(webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Secret))
		slog.Info("webhook notifications enabled", "url", cfg.Webhook.URL)
	}
	if err := orch.Start(context.Background()); err != nil {
		slog.Error("failed to resume unfinished jobs", "error", err)
	}

	// ── 7. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(cfg, orch, jobs.NewReporter(store), v, br, startTime)

	// ── 8. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 9. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// Unfinished attempts are recorded as interrupted and resumed on restart.
	if err := orch.Stop(ctx); err != nil {
		slog.Warn("orchestrator did not stop in time", "error", err)
	}

	slog.Info("stayscan stopped")
}

// newFetcher builds the engine selected by FetchMode. The returned
// DomainMemory is non-nil only in auto mode.
func newFetcher(cfg *config.Config, br *scraper.Browser) (engine.Engine, *engine.DomainMemory, error) {
	httpEngine := engine.NewHTTPEngine(cfg.Engine.HTTPTimeout, cfg.Browser.DefaultProxy)

	// The closure keeps engine/ free of a scraper/ import.
	var browserFetch engine.BrowserFetchFunc
	if br != nil {
		browserFetch = br.Fetch
	}

	switch cfg.Engine.FetchMode {
	case "http":
		return httpEngine, nil, nil
	case "browser":
		if br == nil {
			return nil, nil, fmt.Errorf("fetch mode %q requires the browser", cfg.Engine.FetchMode)
		}
		return engine.NewRodEngine(browserFetch, false), nil, nil
	case "fixture":
		if cfg.Engine.FixtureDir == "" {
			return nil, nil, fmt.Errorf("fetch mode %q requires STAYSCAN_FIXTURE_DIR", cfg.Engine.FetchMode)
		}
		return engine.NewFixtureEngine(cfg.Engine.FixtureDir), nil, nil
	case "auto":
		engines := []engine.Engine{httpEngine}
		if br != nil {
			engines = append(engines,
				engine.NewRodEngine(browserFetch, false),
				engine.NewRodEngine(browserFetch, true),
			)
		} else {
			slog.Warn("browser disabled, auto mode races the HTTP engine only")
		}
		memory := engine.NewDomainMemory(cfg.Engine.DomainMemoryTTL)
		slog.Info("multi-engine dispatcher enabled",
			"engines", len(engines),
			"delays", cfg.Engine.EscalationDelays,
		)
		return engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, memory), memory, nil
	default:
		return nil, nil, fmt.Errorf("unknown fetch mode %q", cfg.Engine.FetchMode)
	}
}

// newStore opens the configured job store and returns a close func.
func newStore(cfg *config.Config) (jobs.Store, func(), error) {
	switch cfg.Store.Backend {
	case "memory":
		return jobs.NewMemoryStore(), func() {}, nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rdb, err := jobs.OpenRedis(ctx, cfg.Store.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				slog.Warn("redis close failed", "error", err)
			}
		}
		return jobs.NewRedisStore(rdb, cfg.Store.KeyPrefix, cfg.Jobs.Retention), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
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
