// Package lifespan maps climate-stress magnitudes to asset-lifespan years
// lost and incremental OPEX, and applies intervention rescues.
package lifespan

import (
	"strings"

	"github.com/atlasclimate/atlas/internal/domain"
)

// Rescue interventions cut the raw penalty to 20% (an 80% reduction) and
// the OPEX penalty to 15%.
const (
	rescuePenaltyFactor = 0.2
	rescueOpexFactor    = 0.15
	minLifespanYears    = 1.0
)

// Sea-level-rise thresholds (metres) for coastal penalties.
const (
	slrModerate = 0.5
	slrSevere   = 1.0
)

// Warming thresholds (degrees Celsius) for flood/agriculture penalties.
const (
	warmingModerate = 1.5
	warmingSevere   = 2.0
)

// CoastalPenaltyYears returns lifespan years lost to sea-level rise.
func CoastalPenaltyYears(slrM float64) float64 {
	switch {
	case slrM < slrModerate:
		return 0
	case slrM < slrSevere:
		return 5
	default:
		return 12
	}
}

// FloodPenaltyYears returns lifespan years lost to warming-driven flooding.
// Agriculture assets share this table.
func FloodPenaltyYears(warmingC float64) float64 {
	switch {
	case warmingC < warmingModerate:
		return 0
	case warmingC < warmingSevere:
		return 4
	default:
		return 10
	}
}

// CoastalOpexPenalty returns the incremental OPEX fraction under SLR.
func CoastalOpexPenalty(slrM float64) float64 {
	switch {
	case slrM < slrModerate:
		return 0
	case slrM < slrSevere:
		return 0.15
	default:
		return 0.30
	}
}

// FloodOpexPenalty returns the incremental OPEX fraction under warming.
func FloodOpexPenalty(warmingC float64) float64 {
	switch {
	case warmingC < warmingModerate:
		return 0
	case warmingC < warmingSevere:
		return 0.12
	default:
		return 0.25
	}
}

// IsRescue reports whether an intervention rescues lifespan: sea walls for
// coastal assets, sponge city for flood assets. Matching is
// case-insensitive and tolerates underscores.
func IsRescue(intervention string) bool {
	norm := strings.ToLower(strings.ReplaceAll(intervention, "_", " "))
	return strings.Contains(norm, "sea wall") || strings.Contains(norm, "sponge city")
}

// Apply computes the adjusted lifespan for a raw penalty, applying the
// rescue reduction when the intervention qualifies. Adjusted lifespan never
// drops below one year.
func Apply(initialYears, rawPenaltyYears float64, intervention string) domain.LifespanAdjustment {
	rescue := IsRescue(intervention)
	penalty := rawPenaltyYears
	if rescue {
		penalty *= rescuePenaltyFactor
	}

	adjusted := initialYears - penalty
	if adjusted < minLifespanYears {
		adjusted = minLifespanYears
	}

	return domain.LifespanAdjustment{
		InitialYears:    initialYears,
		RawPenaltyYears: rawPenaltyYears,
		RescueApplied:   rescue,
		PenaltyYears:    penalty,
		AdjustedYears:   adjusted,
	}
}

// Assess computes the full lifespan adjustment plus OPEX penalty for an
// asset kind under a scenario.
func Assess(kind domain.ProjectKind, s domain.Scenario, initialYears float64, intervention string) domain.LifespanAdjustment {
	var rawPenalty, opexPenalty float64
	switch kind {
	case domain.ProjectCoastal:
		rawPenalty = CoastalPenaltyYears(s.SLRProjectionM)
		opexPenalty = CoastalOpexPenalty(s.SLRProjectionM)
	case domain.ProjectUrbanFlood, domain.ProjectFlashFlood, domain.ProjectAgriculture:
		rawPenalty = FloodPenaltyYears(s.GlobalWarmingC)
		opexPenalty = FloodOpexPenalty(s.GlobalWarmingC)
	default:
		// Health assets carry no structural lifespan penalty.
	}

	adj := Apply(initialYears, rawPenalty, intervention)
	if adj.RescueApplied {
		opexPenalty *= rescueOpexFactor
	}
	adj.OpexPenaltyPct = opexPenalty
	return adj
}
