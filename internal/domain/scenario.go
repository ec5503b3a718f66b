package domain

// Scenario bounds.
const (
	MinScenarioYear = 2024
	MaxScenarioYear = 2100
)

// Scenario is the climate future an asset is simulated under. It is a small
// immutable value; the scenario runner is a pure function of
// (Asset, Scenario, HazardSample, seed).
//
// RainPctChange is a fraction (-0.30 for a 30% drying), never an integer
// percent. RainIntensityPct is the relative increase in short-duration
// rainfall intensity, also a fraction.
type Scenario struct {
	Year             int     `json:"year"`
	TempDeltaC       float64 `json:"temp_delta_c"`
	RainPctChange    float64 `json:"rain_pct_change"`
	SLRProjectionM   float64 `json:"slr_projection_m"`
	RainIntensityPct float64 `json:"rain_intensity_pct"`
	GlobalWarmingC   float64 `json:"global_warming_c"`
}

// Validate checks scenario bounds. It returns an INVALID_INPUT error so the
// surface can reject the request before any work starts.
func (s Scenario) Validate() error {
	if s.Year < MinScenarioYear || s.Year > MaxScenarioYear {
		return Invalidf("scenario year %d outside [%d, %d]", s.Year, MinScenarioYear, MaxScenarioYear)
	}
	if s.SLRProjectionM < 0 {
		return Invalid("slr_projection_m must be non-negative")
	}
	return nil
}

// ScaledTo linearly interpolates the scenario's warming and sea-level-rise
// magnitudes from a base year toward the scenario's own targets at a horizon
// year. Used by the temporal sweep that samples 2030/2040/2050.
func (s Scenario) ScaledTo(year, baseYear, horizonYear int) Scenario {
	if horizonYear <= baseYear {
		return s
	}
	f := float64(year-baseYear) / float64(horizonYear-baseYear)
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	out := s
	out.Year = year
	out.TempDeltaC = s.TempDeltaC * f
	out.SLRProjectionM = s.SLRProjectionM * f
	out.RainIntensityPct = s.RainIntensityPct * f
	out.GlobalWarmingC = s.GlobalWarmingC * f
	return out
}
