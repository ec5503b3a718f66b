package hazard

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/telemetry"
)

// Service is the provider the rest of the system talks to. It layers the
// optional upstream client over the sample cache over the parametric
// fallback. Sample never fails: every field that cannot be fetched degrades
// to its deterministic fallback with the provenance tag to match.
type Service struct {
	log      zerolog.Logger
	upstream Provider // nil when no API is configured
	cache    *Cache   // nil when running cacheless (tests, CLI)
	fallback Parametric
	metrics  *telemetry.Metrics // nil when uninstrumented
}

// NewService wires the lookup chain. Upstream, cache, and metrics may all be
// nil.
func NewService(upstream Provider, cache *Cache, metrics *telemetry.Metrics, log zerolog.Logger) *Service {
	return &Service{
		log:      log.With().Str("component", "hazard").Logger(),
		upstream: upstream,
		cache:    cache,
		metrics:  metrics,
	}
}

// fellBack counts a hazard field answered by the parametric fallback.
func (s *Service) fellBack(field string) {
	if s.metrics != nil {
		s.metrics.HazardFallback.WithLabelValues(field).Inc()
	}
}

// Sample assembles the full hazard sample for a coordinate. The error
// return covers only invalid coordinates; transport failures degrade the
// sample instead.
func (s *Service) Sample(ctx context.Context, lat, lon float64) (domain.HazardSample, error) {
	if err := ValidateCoordinate(lat, lon); err != nil {
		return domain.HazardSample{}, err
	}

	if s.cache != nil {
		if cached := s.cache.Get(ctx, lat, lon); cached != nil {
			return *cached, nil
		}
	}

	sample := s.fetch(ctx, lat, lon)

	// Only fully upstream samples are worth caching; a degraded sample
	// would pin fallback values past the outage.
	if s.cache != nil && !sample.Degraded() {
		s.cache.Put(ctx, lat, lon, sample)
	}
	return sample, nil
}

func (s *Service) fetch(ctx context.Context, lat, lon float64) domain.HazardSample {
	var sample domain.HazardSample

	sample.Weather = s.weather(ctx, lat, lon)
	sample.Terrain = s.terrain(ctx, lat, lon)
	sample.Coastal = s.coastal(ctx, lat, lon)
	sample.Monthly = s.monthly(ctx, lat, lon)
	sample.NDVI = s.NDVI(ctx, lat, lon)
	return sample
}

func (s *Service) weather(ctx context.Context, lat, lon float64) domain.WeatherSample {
	if s.upstream != nil {
		if w, err := s.upstream.Weather(ctx, lat, lon); err == nil {
			return w
		} else {
			s.log.Debug().Err(err).Msg("weather upstream failed, using fallback")
		}
	}
	s.fellBack("weather")
	w, _ := s.fallback.Weather(ctx, lat, lon)
	return w
}

func (s *Service) terrain(ctx context.Context, lat, lon float64) domain.TerrainSample {
	if s.upstream != nil {
		if t, err := s.upstream.Terrain(ctx, lat, lon); err == nil {
			return t
		} else {
			s.log.Debug().Err(err).Msg("terrain upstream failed, using fallback")
		}
	}
	s.fellBack("terrain")
	t, _ := s.fallback.Terrain(ctx, lat, lon)
	return t
}

func (s *Service) coastal(ctx context.Context, lat, lon float64) domain.CoastalSample {
	if s.upstream != nil {
		if c, err := s.upstream.Coastal(ctx, lat, lon); err == nil {
			return c
		} else {
			s.log.Debug().Err(err).Msg("coastal upstream failed, using fallback")
		}
	}
	s.fellBack("coastal")
	c, _ := s.fallback.Coastal(ctx, lat, lon)
	return c
}

func (s *Service) monthly(ctx context.Context, lat, lon float64) domain.MonthlySample {
	if s.upstream != nil {
		if m, err := s.upstream.Monthly(ctx, lat, lon); err == nil {
			return m
		} else {
			s.log.Debug().Err(err).Msg("monthly upstream failed, using fallback")
		}
	}
	s.fellBack("monthly")
	m, _ := s.fallback.Monthly(ctx, lat, lon)
	return m
}

// NDVI returns the raw vegetation series for a coordinate, upstream when
// possible, synthetic otherwise.
func (s *Service) NDVI(ctx context.Context, lat, lon float64) []domain.NDVIPoint {
	if s.upstream != nil {
		if pts, err := s.upstream.NDVI(ctx, lat, lon); err == nil && len(pts) > 0 {
			return pts
		}
	}
	s.fellBack("ndvi")
	pts, _ := s.fallback.NDVI(ctx, lat, lon)
	return pts
}
