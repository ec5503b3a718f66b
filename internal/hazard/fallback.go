package hazard

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/atlasclimate/atlas/internal/domain"
)

// Climate-zone parametric weather, keyed on absolute latitude.
type climateZone struct {
	maxTempC    float64
	totalRainMM float64
}

var climateZones = []struct {
	latLimit float64
	zone     climateZone
}{
	{23.5, climateZone{28.5, 1800}}, // tropical
	{35.0, climateZone{25.0, 900}},  // subtropical
	{50.0, climateZone{20.0, 700}},  // temperate
	{90.1, climateZone{15.0, 500}},  // cold
}

// Monthly rain share per month, wet-season weighted. Sums to 1.
var monthlyRainShape = [12]float64{
	0.03, 0.03, 0.05, 0.08, 0.11, 0.13,
	0.14, 0.13, 0.11, 0.09, 0.06, 0.04,
}

// Parametric is the deterministic fallback provider. It never fails and
// never blocks; every value is a pure function of the coordinate.
type Parametric struct{}

var _ Provider = (*Parametric)(nil)

func zoneFor(lat float64) climateZone {
	abs := math.Abs(lat)
	for _, z := range climateZones {
		if abs < z.latLimit {
			return z.zone
		}
	}
	return climateZones[len(climateZones)-1].zone
}

// coordHash is a stable per-cell value in [0, 1) used to desynchronize
// neighbouring coordinates without randomness. Coordinates are rounded to
// four decimals first, matching the flash-flood baseline convention.
func coordHash(lat, lon float64) float64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%.4f:%.4f", lat, lon)
	return float64(h.Sum64()%10_000) / 10_000
}

func (Parametric) Weather(_ context.Context, lat, lon float64) (domain.WeatherSample, error) {
	z := zoneFor(lat)
	return domain.WeatherSample{
		MaxTempC:    z.maxTempC,
		TotalRainMM: z.totalRainMM,
		Provenance:  domain.ProvenanceFallbackClimate,
	}, nil
}

func (Parametric) Terrain(_ context.Context, lat, lon float64) (domain.TerrainSample, error) {
	h := coordHash(lat, lon)
	return domain.TerrainSample{
		ElevationM: 2 + 40*h,
		SoilPH:     5.5 + 2.0*coordHash(lon, lat),
		SlopePct:   1 + 9*h,
		Provenance: domain.ProvenanceFallbackParametric,
	}, nil
}

func (Parametric) Coastal(_ context.Context, lat, lon float64) (domain.CoastalSample, error) {
	h := coordHash(lat, lon)
	return domain.CoastalSample{
		MaxWaveHeightM: 1.5 + 2.5*h,
		BeachSlope:     0.05 + 0.10*coordHash(lon, lat),
		Provenance:     domain.ProvenanceFallbackParametric,
	}, nil
}

func (Parametric) Monthly(ctx context.Context, lat, lon float64) (domain.MonthlySample, error) {
	w, _ := Parametric{}.Weather(ctx, lat, lon)

	var out domain.MonthlySample
	for m := 0; m < 12; m++ {
		out.RainfallMM[m] = w.TotalRainMM * monthlyRainShape[m]
		// Soil moisture trails rainfall with a one-month lag.
		prev := monthlyRainShape[(m+11)%12]
		out.SoilMoisture[m] = clampFraction(0.15 + 3.0*(monthlyRainShape[m]+prev)/2)
	}
	out.Provenance = domain.ProvenanceFallbackParametric
	return out, nil
}

func (Parametric) NDVI(_ context.Context, lat, lon float64) ([]domain.NDVIPoint, error) {
	// Twelve months ending last month, a seasonal sinusoid whose phase and
	// amplitude follow the coordinate hash. Southern hemisphere seasons are
	// shifted by half a year.
	h := coordHash(lat, lon)
	phase := 0.0
	if lat < 0 {
		phase = math.Pi
	}

	now := time.Now().UTC()
	points := make([]domain.NDVIPoint, 0, 12)
	for i := 11; i >= 0; i-- {
		month := now.AddDate(0, -i-1, 0)
		seasonal := math.Sin(2*math.Pi*float64(month.Month()-1)/12 + phase)
		points = append(points, domain.NDVIPoint{
			Month: month.Format("2006-01"),
			Value: 0.45 + 0.20*seasonal + 0.10*(h-0.5),
		})
	}
	return points, nil
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
