// Package physics implements the deterministic hazard kernels: crop yield,
// coastal run-up, urban and flash flood, heat stress, and malaria
// suitability. Every kernel is a pure function of numeric inputs; no kernel
// performs I/O. Surrogate-backed kernels depend on the Regressor interface
// and fall back to a closed form when no model is loaded.
package physics

import "github.com/atlasclimate/atlas/internal/domain"

// Regressor is the contract a fitted surrogate model satisfies. Models are
// immutable after load and safe for concurrent use.
type Regressor interface {
	Predict(features []float64) float64
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// stressFromDamage buckets a damage fraction into the common categories.
func stressFromDamage(damage float64) domain.StressCategory {
	switch {
	case damage < 0.05:
		return domain.StressLow
	case damage < 0.15:
		return domain.StressModerate
	case damage < 0.30:
		return domain.StressHigh
	case damage < 0.50:
		return domain.StressVeryHigh
	default:
		return domain.StressExtreme
	}
}
