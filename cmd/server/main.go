// The atlas server exposes the climate-resilience simulation engine over
// HTTP. It wires the hazard chain, the surrogate model registry, the run
// history, the maintenance scheduler, and the chi router, then serves until
// interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/atlasclimate/atlas/internal/catalog"
	"github.com/atlasclimate/atlas/internal/config"
	"github.com/atlasclimate/atlas/internal/database"
	"github.com/atlasclimate/atlas/internal/events"
	"github.com/atlasclimate/atlas/internal/hazard"
	"github.com/atlasclimate/atlas/internal/orchestrator"
	"github.com/atlasclimate/atlas/internal/rating"
	"github.com/atlasclimate/atlas/internal/runner"
	"github.com/atlasclimate/atlas/internal/runs"
	"github.com/atlasclimate/atlas/internal/scheduler"
	"github.com/atlasclimate/atlas/internal/server"
	"github.com/atlasclimate/atlas/internal/surrogate"
	"github.com/atlasclimate/atlas/internal/telemetry"
	"github.com/atlasclimate/atlas/pkg/logger"
)

const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.DevMode)
	log.Info().Int("port", cfg.Port).Bool("mock_data", cfg.UseMockData).Msg("atlas starting")

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		return fmt.Errorf("open cache database: %w", err)
	}
	defer cacheDB.Close()

	runsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "runs.db"),
		Profile: database.ProfileStandard,
		Name:    "runs",
	})
	if err != nil {
		return fmt.Errorf("open runs database: %w", err)
	}
	defer runsDB.Close()

	metrics := telemetry.New()

	cache, err := hazard.NewCache(cacheDB, hazard.DefaultCacheTTL, metrics, log)
	if err != nil {
		return fmt.Errorf("init hazard cache: %w", err)
	}
	repo, err := runs.NewRepository(runsDB, log)
	if err != nil {
		return fmt.Errorf("init run history: %w", err)
	}

	// Upstream hazard API is optional; mock mode forces the parametric
	// fallback everywhere.
	var upstream hazard.Provider
	if cfg.HazardBaseURL != "" && !cfg.UseMockData {
		upstream = hazard.NewUpstream(cfg.HazardBaseURL,
			time.Duration(cfg.HazardTimeoutSec)*time.Second, log)
	}
	hazards := hazard.NewService(upstream, cache, metrics, log)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelStart()

	// Pull missing surrogate model artifacts before loading the registry.
	// Absent models only disable their endpoints.
	if fetcher, ferr := surrogate.NewFetcher(startCtx, cfg.Models, cfg.ModelDir, log); ferr != nil {
		log.Warn().Err(ferr).Msg("model artifact fetcher unavailable")
	} else if fetcher != nil {
		fetcher.FetchMissing(startCtx)
	}
	models := surrogate.NewRegistry(cfg.ModelDir, log)
	models.Load()

	cat := catalog.MustLoad()
	engine := runner.New(hazards, models, cat, cfg.Financial, log)
	bus := events.NewBus()

	sched, err := scheduler.New(cache, repo, hazards, log)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Deps{
		Config:       cfg,
		Runner:       engine,
		Orchestrator: orchestrator.New(engine, bus, metrics, log),
		Sweeper:      rating.NewSweeper(engine, log),
		Hazards:      hazards,
		Catalog:      cat,
		Models:       models,
		Repo:         repo,
		Bus:          bus,
		Metrics:      metrics,
	}, log)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
