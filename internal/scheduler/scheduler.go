// Package scheduler runs the background maintenance jobs: sweeping expired
// hazard-cache rows, pruning old run history, and refreshing vegetation
// climatology for recently queried locations.
package scheduler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/atlasclimate/atlas/internal/hazard"
	"github.com/atlasclimate/atlas/internal/runs"
)

// Job cadences. Sweeps run nightly off-peak; the climatology refresh walks
// the recent keys hourly so hot locations stay warm.
const (
	cacheSweepSpec  = "0 3 * * *"
	runsPruneSpec   = "30 3 * * *"
	ndviRefreshSpec = "@hourly"

	runRetention      = 90 * 24 * time.Hour
	refreshWindow     = 24 * time.Hour
	refreshBatchLimit = 50
	jobTimeout        = 5 * time.Minute
)

// Scheduler owns the cron runner. Construct with New, start with Start,
// stop with Stop.
type Scheduler struct {
	log   zerolog.Logger
	cron  *cron.Cron
	cache *hazard.Cache
	repo  *runs.Repository
	veg   *hazard.Service
}

// New wires the maintenance jobs. Any nil dependency skips its job.
func New(cache *hazard.Cache, repo *runs.Repository, veg *hazard.Service, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		log:   log.With().Str("component", "scheduler").Logger(),
		cron:  cron.New(),
		cache: cache,
		repo:  repo,
		veg:   veg,
	}

	if s.cache != nil {
		if _, err := s.cron.AddFunc(cacheSweepSpec, s.sweepCache); err != nil {
			return nil, err
		}
	}
	if s.repo != nil {
		if _, err := s.cron.AddFunc(runsPruneSpec, s.pruneRuns); err != nil {
			return nil, err
		}
	}
	if s.veg != nil && s.cache != nil {
		if _, err := s.cron.AddFunc(ndviRefreshSpec, s.refreshClimatology); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("maintenance scheduler started")
}

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("maintenance scheduler stopped")
}

func (s *Scheduler) sweepCache() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.cache.Sweep(ctx); err != nil {
		s.log.Error().Err(err).Msg("cache sweep failed")
	}
}

func (s *Scheduler) pruneRuns() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.repo.Prune(ctx, runRetention); err != nil {
		s.log.Error().Err(err).Msg("run prune failed")
	}
}

// refreshClimatology re-fetches the NDVI series for coordinates queried in
// the last day, keeping the vegetation climatology warm for repeat callers.
func (s *Scheduler) refreshClimatology() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	keys, err := s.cache.RecentKeys(ctx, refreshWindow, refreshBatchLimit)
	if err != nil {
		s.log.Error().Err(err).Msg("recent-key scan failed")
		return
	}

	refreshed := 0
	for _, key := range keys {
		lat, lon, ok := parseCoordKey(key)
		if !ok {
			continue
		}
		if _, err := s.veg.Vegetation(ctx, lat, lon); err == nil {
			refreshed++
		}
	}
	if refreshed > 0 {
		s.log.Debug().Int("locations", refreshed).Msg("climatology refreshed")
	}
}

func parseCoordKey(key string) (lat, lon float64, ok bool) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(parts[0], 64)
	lon, err2 := strconv.ParseFloat(parts[1], 64)
	return lat, lon, err1 == nil && err2 == nil
}
