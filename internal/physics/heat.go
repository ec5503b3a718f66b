package physics

import "github.com/atlasclimate/atlas/internal/domain"

// WBGT thresholds for labour productivity (degrees Celsius).
const (
	wbgtSafeLimit       = 26.0
	wbgtCapLimit        = 32.0
	maxProductivityLoss = 0.50
)

// WBGT approximates wet-bulb globe temperature from dry-bulb temperature
// and relative humidity in integer-percent units (65, not 0.65).
func WBGT(tempC, humidityPct float64) float64 {
	return 0.7*tempC + 0.1*humidityPct
}

// ProductivityLoss maps WBGT to the fraction of work capacity lost: zero
// below 26 °C, rising linearly to 50% at 32 °C, capped there.
func ProductivityLoss(wbgt float64) float64 {
	if wbgt <= wbgtSafeLimit {
		return 0
	}
	loss := (wbgt - wbgtSafeLimit) / (wbgtCapLimit - wbgtSafeLimit) * maxProductivityLoss
	if loss > maxProductivityLoss {
		return maxProductivityLoss
	}
	return loss
}

// HeatStressCategory buckets WBGT for presentation.
func HeatStressCategory(wbgt float64) domain.StressCategory {
	switch {
	case wbgt < 26:
		return domain.StressLow
	case wbgt < 28:
		return domain.StressModerate
	case wbgt < 30:
		return domain.StressHigh
	case wbgt < 32:
		return domain.StressVeryHigh
	default:
		return domain.StressExtreme
	}
}

// Heat evaluates workforce heat stress. humidity is a fraction in [0, 1].
func Heat(tempC, humidity float64) domain.PhysicsResult {
	wbgt := WBGT(tempC, humidity*100)
	loss := ProductivityLoss(wbgt)
	return domain.PhysicsResult{
		WBGT:                wbgt,
		ProductivityLossPct: loss,
		DamagePct:           loss,
		Stress:              HeatStressCategory(wbgt),
	}
}
