// Package hazard supplies the environmental samples the physics kernels
// consume. Lookups go upstream when an API is configured, through a local
// sample cache, and fall back to deterministic parametric values keyed on
// the climate zone. Provider failures never reach the core: a degraded
// upstream only changes the provenance tag on the sample.
package hazard

import (
	"context"

	"github.com/atlasclimate/atlas/internal/domain"
)

// Provider answers environmental lookups for a coordinate. Implementations
// may fail; the Service recovers by falling through to the parametric
// provider, which never does.
type Provider interface {
	Weather(ctx context.Context, lat, lon float64) (domain.WeatherSample, error)
	Terrain(ctx context.Context, lat, lon float64) (domain.TerrainSample, error)
	Coastal(ctx context.Context, lat, lon float64) (domain.CoastalSample, error)
	Monthly(ctx context.Context, lat, lon float64) (domain.MonthlySample, error)
	NDVI(ctx context.Context, lat, lon float64) ([]domain.NDVIPoint, error)
}

// ValidateCoordinate bounds a lookup coordinate.
func ValidateCoordinate(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return domain.Invalidf("latitude %v outside [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return domain.Invalidf("longitude %v outside [-180, 180]", lon)
	}
	return nil
}
