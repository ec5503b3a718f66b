package domain

// Provenance tags where a hazard field came from. The core never branches
// on upstream transport errors; a degraded upstream just yields fallback
// provenance on the sample.
type Provenance string

const (
	ProvenanceUpstream           Provenance = "upstream"
	ProvenanceFallbackParametric Provenance = "fallback_parametric"
	ProvenanceFallbackClimate    Provenance = "fallback_climate_zone"
)

// WeatherSample is the annual weather summary for a coordinate.
type WeatherSample struct {
	MaxTempC    float64    `json:"max_temp_celsius"`
	TotalRainMM float64    `json:"total_rain_mm"`
	Provenance  Provenance `json:"provenance"`
}

// TerrainSample describes the ground at a coordinate.
type TerrainSample struct {
	ElevationM float64    `json:"elevation_m"`
	SoilPH     float64    `json:"soil_ph"`
	SlopePct   float64    `json:"slope_pct"`
	Provenance Provenance `json:"provenance"`
}

// CoastalSample carries the wave climate used by the run-up kernel.
type CoastalSample struct {
	MaxWaveHeightM float64    `json:"max_wave_height_m"`
	BeachSlope     float64    `json:"beach_slope"`
	Provenance     Provenance `json:"provenance"`
}

// MonthlySample is twelve months of rainfall and soil moisture.
type MonthlySample struct {
	RainfallMM   [12]float64 `json:"rainfall_mm"`
	SoilMoisture [12]float64 `json:"soil_moisture"`
	Provenance   Provenance  `json:"provenance"`
}

// NDVIPoint is one month of vegetation index, value in [-1, 1].
type NDVIPoint struct {
	Month string  `json:"month"` // "YYYY-MM"
	Value float64 `json:"value"`
}

// HazardSample is everything the physics kernels consume for one location.
// Humidity is never observed; it is derived from annual rainfall. The sample
// is fetched at the start of a run and discarded at the end.
type HazardSample struct {
	Weather WeatherSample `json:"weather"`
	Terrain TerrainSample `json:"terrain"`
	Coastal CoastalSample `json:"coastal"`
	Monthly MonthlySample `json:"monthly"`
	NDVI    []NDVIPoint   `json:"ndvi,omitempty"`
}

// HumidityPct derives relative humidity (a fraction) from annual rainfall:
// arid <500mm -> 0.50, moderate <1000mm -> 0.65, wet -> 0.80.
func (h HazardSample) HumidityPct() float64 {
	switch rain := h.Weather.TotalRainMM; {
	case rain < 500:
		return 0.50
	case rain < 1000:
		return 0.65
	default:
		return 0.80
	}
}

// Normalized returns a copy with the scenario deltas applied: temperature
// shifted by TempDeltaC and rainfall scaled by (1 + RainPctChange).
func (h HazardSample) Normalized(s Scenario) HazardSample {
	out := h
	out.Weather.MaxTempC += s.TempDeltaC
	out.Weather.TotalRainMM *= 1 + s.RainPctChange
	if out.Weather.TotalRainMM < 0 {
		out.Weather.TotalRainMM = 0
	}
	return out
}

// Degraded reports whether any field of the sample came from a fallback
// path; surfaces attach an UPSTREAM_DEGRADED warning when true.
func (h HazardSample) Degraded() bool {
	return h.Weather.Provenance != ProvenanceUpstream ||
		h.Terrain.Provenance != ProvenanceUpstream ||
		h.Coastal.Provenance != ProvenanceUpstream ||
		h.Monthly.Provenance != ProvenanceUpstream
}
