// Package server exposes the simulation engine over HTTP: single-asset and
// batch scenario runs, hazard lookups, the analytics kernels, run history,
// live batch-progress streams, and operational endpoints.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/atlasclimate/atlas/internal/catalog"
	"github.com/atlasclimate/atlas/internal/config"
	"github.com/atlasclimate/atlas/internal/events"
	"github.com/atlasclimate/atlas/internal/hazard"
	"github.com/atlasclimate/atlas/internal/orchestrator"
	"github.com/atlasclimate/atlas/internal/rating"
	"github.com/atlasclimate/atlas/internal/runner"
	"github.com/atlasclimate/atlas/internal/runs"
	"github.com/atlasclimate/atlas/internal/surrogate"
	"github.com/atlasclimate/atlas/internal/telemetry"
)

// Deps carries everything the handlers need. Repo, bus, metrics, and models
// may be nil; the affected endpoints degrade or disappear.
type Deps struct {
	Config       *config.Config
	Runner       *runner.Runner
	Orchestrator *orchestrator.Orchestrator
	Sweeper      *rating.Sweeper
	Hazards      *hazard.Service
	Catalog      *catalog.Catalog
	Models       *surrogate.Registry
	Repo         *runs.Repository
	Bus          *events.Bus
	Metrics      *telemetry.Metrics
}

// Server is the HTTP surface. Immutable after construction.
type Server struct {
	log       zerolog.Logger
	deps      Deps
	startedAt time.Time
}

// New builds the server.
func New(deps Deps, log zerolog.Logger) *Server {
	return &Server{
		log:       log.With().Str("component", "server").Logger(),
		deps:      deps,
		startedAt: time.Now(),
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			s.deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/simulate", s.handleSimulate)
		r.Post("/simulate/batch", s.handleBatch)
		r.Post("/rating/outlook", s.handleOutlook)

		r.Post("/analytics/price-shock", s.handlePriceShock)
		r.Post("/analytics/cba", s.handleCBA)
		r.Post("/analytics/green-bond", s.handleGreenBond)
		r.Post("/analytics/damage-cvar", s.handleDamageCVaR)
		r.Post("/analytics/daly", s.handleDALY)

		r.Get("/hazard", s.handleHazard)
		r.Get("/hazard/vegetation", s.handleVegetation)
		r.Get("/catalog/crops", s.handleCrops)

		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)

		r.Get("/events/ws", s.handleEventsWS)
		r.Get("/events/stream", s.handleEventsSSE)

		r.Get("/system/status", s.handleSystemStatus)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, map[string]string{"service": "atlas"})
}
