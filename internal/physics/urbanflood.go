package physics

import (
	"strings"

	"github.com/atlasclimate/atlas/internal/domain"
)

// Imperviousness reduction per intervention (fraction of the current
// impervious share removed).
var imperviousnessReduction = map[string]float64{
	"green_roof":         0.30,
	"permeable_pavement": 0.40,
	"bioswales":          0.25,
	"rain_gardens":       0.20,
	"sponge_city":        0.35,
	"none":               0.0,
}

// InterventionImperviousness applies the tabulated reduction factor to the
// current impervious fraction. Unknown interventions leave it unchanged.
func InterventionImperviousness(current float64, intervention string) float64 {
	key := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(intervention, " ", "_")))
	factor, ok := imperviousnessReduction[key]
	if !ok {
		return current
	}
	return current * (1 - factor)
}

// UrbanFloodInputs drive the urban flood depth kernel. RainIntensityMMHr is
// the design storm intensity; Imperviousness is a fraction in [0, 1].
type UrbanFloodInputs struct {
	RainIntensityMMHr float64
	Imperviousness    float64
	SlopePct          float64
}

// UrbanFloodDepth returns ponding depth in cm. A fitted surrogate maps
// (rain_intensity_mm_hr, impervious_pct, slope_pct) -> depth_cm; the
// fallback closed form scales depth with intensity and imperviousness and
// drains with slope.
func UrbanFloodDepth(in UrbanFloodInputs, surrogate Regressor) float64 {
	if surrogate != nil {
		d := surrogate.Predict([]float64{in.RainIntensityMMHr, in.Imperviousness, in.SlopePct})
		if d < 0 {
			return 0
		}
		return d
	}
	depth := 0.35 * in.RainIntensityMMHr * in.Imperviousness / (1 + 0.5*in.SlopePct)
	if depth < 0 {
		return 0
	}
	return depth
}

// UrbanFlood evaluates depth and the Huizinga depth-damage fraction.
func UrbanFlood(in UrbanFloodInputs, surrogate Regressor) domain.PhysicsResult {
	depth := UrbanFloodDepth(in, surrogate)
	damage := DepthDamage(depth)
	return domain.PhysicsResult{
		DepthCM:   depth,
		DamagePct: damage,
		Stress:    stressFromDamage(damage),
	}
}

// Huizinga depth-damage curve: piecewise-linear on depth breakpoints (cm)
// with damage fractions at each knot, capped at 0.70.
var (
	depthKnotsCM  = []float64{0, 5, 15, 30, 60}
	damageAtKnots = []float64{0, 0.02, 0.08, 0.20, 0.40}
	damageCap     = 0.70
)

// DepthDamage interpolates the depth-damage curve, returning a fraction in
// [0, 0.70].
func DepthDamage(depthCM float64) float64 {
	if depthCM <= 0 {
		return 0
	}
	for i := 1; i < len(depthKnotsCM); i++ {
		if depthCM <= depthKnotsCM[i] {
			span := depthKnotsCM[i] - depthKnotsCM[i-1]
			f := (depthCM - depthKnotsCM[i-1]) / span
			return damageAtKnots[i-1] + f*(damageAtKnots[i]-damageAtKnots[i-1])
		}
	}
	// Beyond the last knot damage rises from 0.40 toward the 0.70 cap over
	// the next 60 cm.
	last := depthKnotsCM[len(depthKnotsCM)-1]
	d := damageAtKnots[len(damageAtKnots)-1] + (depthCM-last)/60*(damageCap-damageAtKnots[len(damageAtKnots)-1])
	if d > damageCap {
		return damageCap
	}
	return d
}
