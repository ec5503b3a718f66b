package physics

import (
	"github.com/atlasclimate/atlas/internal/catalog"
	"github.com/atlasclimate/atlas/internal/domain"
)

// Resilient seed shifts the stress thresholds: it tolerates 3 degrees more
// heat and moves the drought threshold downward by 15%.
const (
	resilientHeatToleranceC = 3.0
	resilientDroughtShift   = 0.85
)

// YieldInputs are the drivers of the crop yield kernel.
type YieldInputs struct {
	Crop      catalog.CropParams
	TempC     float64
	RainMM    float64
	SoilPH    float64 // <= 0 skips the pH factor
	Resilient bool    // seed flag: true = resilient variety
}

// CropYield returns the expected yield as a percent in [0, 100]. Yield is
// the product of independent temperature, rainfall and (optional) soil-pH
// factors, each clipped to [0, 1].
func CropYield(in YieldInputs) float64 {
	t := temperatureFactor(in.Crop, in.TempC, in.Resilient)
	r := rainfallFactor(in.Crop, in.RainMM, in.Resilient)
	f := t * r
	if in.SoilPH > 0 {
		f *= phFactor(in.Crop, in.SoilPH)
	}
	return clamp01(f) * 100
}

// Agriculture runs both seed varieties and reports the yield pair plus the
// implied damage (standard-seed loss fraction).
func Agriculture(crop catalog.CropParams, tempC, rainMM, soilPH float64) domain.PhysicsResult {
	std := CropYield(YieldInputs{Crop: crop, TempC: tempC, RainMM: rainMM, SoilPH: soilPH})
	res := CropYield(YieldInputs{Crop: crop, TempC: tempC, RainMM: rainMM, SoilPH: soilPH, Resilient: true})

	damage := 1 - std/100
	return domain.PhysicsResult{
		YieldPct:          std,
		ResilientYieldPct: res,
		DamagePct:         damage,
		Stress:            stressFromDamage(damage),
	}
}

// temperatureFactor is 1.0 up to the crop's critical temperature and decays
// linearly above it (8% per degree of exceedance).
func temperatureFactor(c catalog.CropParams, tempC float64, resilient bool) float64 {
	critical := c.CriticalTempC
	if resilient {
		critical += resilientHeatToleranceC
	}
	if tempC <= critical {
		return 1.0
	}
	return clamp01(1.0 - 0.08*(tempC-critical))
}

// rainfallFactor is 1.0 inside the optimum band, decays linearly to zero at
// the crop's minimum on the dry side, and declines past the waterlogging
// threshold on the wet side. The resilient variety only moves the drought
// side; waterlogging hits both varieties equally.
func rainfallFactor(c catalog.CropParams, rainMM float64, resilient bool) float64 {
	optLow := c.RainOptLowMM
	minMM := c.RainMinMM
	if resilient {
		optLow *= resilientDroughtShift
		minMM *= resilientDroughtShift
	}

	switch {
	case rainMM <= minMM:
		return 0
	case rainMM < optLow:
		return clamp01((rainMM - minMM) / (optLow - minMM))
	case rainMM <= c.WaterloggingMM:
		return 1.0
	default:
		// Waterlogging: lose the whole crop once rainfall doubles the
		// threshold.
		return clamp01(1.0 - (rainMM-c.WaterloggingMM)/c.WaterloggingMM)
	}
}

// phFactor penalizes soil acidity/alkalinity outside the optimum band at
// 20% per pH unit, floored at 0.3 (soil is amendable, never a total loss).
func phFactor(c catalog.CropParams, ph float64) float64 {
	var dev float64
	switch {
	case ph < c.PHOptLow:
		dev = c.PHOptLow - ph
	case ph > c.PHOptHigh:
		dev = ph - c.PHOptHigh
	default:
		return 1.0
	}
	f := 1.0 - 0.2*dev
	if f < 0.3 {
		return 0.3
	}
	return f
}
