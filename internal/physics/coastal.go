package physics

import (
	"math"

	"github.com/atlasclimate/atlas/internal/domain"
)

// CoastalInputs drive the run-up kernel.
type CoastalInputs struct {
	WaveHeightM    float64
	BeachSlope     float64 // rise/run fraction
	MangroveWidthM float64
	ElevationM     float64
	SLRProjectionM float64
}

// CoastalRunup computes the wave run-up elevation in metres. When a fitted
// surrogate is supplied it is queried with (wave_height, slope,
// mangrove_width_m); otherwise the Stockdon-style closed form applies, with
// mangroves attenuating run-up by 45% per 100 m of forest width.
func CoastalRunup(in CoastalInputs, surrogate Regressor) float64 {
	if surrogate != nil {
		return surrogate.Predict([]float64{in.WaveHeightM, in.BeachSlope, in.MangroveWidthM})
	}
	return 0.71 * in.BeachSlope * in.WaveHeightM * math.Pow(1-0.45, in.MangroveWidthM/100)
}

// Coastal evaluates run-up against the asset elevation under the scenario's
// sea-level rise and converts overtopping depth to structural damage.
func Coastal(in CoastalInputs, surrogate Regressor) domain.PhysicsResult {
	runup := CoastalRunup(in, surrogate)

	// Inundation depth over the asset floor, in cm.
	depthM := runup + in.SLRProjectionM - in.ElevationM
	depthCM := 0.0
	if depthM > 0 {
		depthCM = depthM * 100
	}
	damage := DepthDamage(depthCM)

	return domain.PhysicsResult{
		RunupM:    runup,
		DepthCM:   depthCM,
		DamagePct: damage,
		Stress:    stressFromDamage(damage),
	}
}
