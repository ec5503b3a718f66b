// Package publichealth estimates population disability-adjusted life years
// (DALYs) lost to heat and malaria, the effect of cooling and vector-control
// interventions, and the WHO-CHOICE monetization.
package publichealth

import (
	"strings"

	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/physics"
)

// DALY model coefficients, per 1000 population.
const (
	heatDALYPerLossUnit = 25.0 // DALYs per 1000 at total productivity loss
	malariaDALYAtFull   = 8.0  // DALYs per 1000 at suitability score 100

	coolingHeatReduction      = 0.40
	eradicationMalariaCut     = 0.70
	valuePerDALYGDPMultiplier = 2.0
)

// Input drives one DALY assessment.
type Input struct {
	WBGT             float64 `json:"wbgt"`
	MalariaRiskScore float64 `json:"malaria_risk_score"`
	Population       int     `json:"population"`
	GDPPerCapitaUSD  float64 `json:"gdp_per_capita_usd"`
	Intervention     string  `json:"intervention,omitempty"`
}

// Result reports DALY burdens before and after the intervention.
type Result struct {
	BaselineDALYs             float64 `json:"baseline_dalys"`
	PostDALYs                 float64 `json:"post_intervention_dalys"`
	AvertedDALYs              float64 `json:"averted_dalys"`
	HeatComponentPer1000      float64 `json:"heat_component_per_1000"`
	MalariaComponentPer1000   float64 `json:"malaria_component_per_1000"`
	ValuePerDALYUSD           float64 `json:"value_per_daly_usd"`
	EconomicValuePreservedUSD float64 `json:"economic_value_preserved_usd"`
}

// Assess computes the population DALY burden. The heat component scales
// with the WBGT productivity-loss fraction; the malaria component with the
// suitability score. Cooling centers cut the heat component by 40%, vector
// eradication cuts the malaria component by 70%.
func Assess(in Input) (Result, error) {
	if in.Population <= 0 {
		return Result{}, domain.Invalid("population must be positive")
	}
	if in.GDPPerCapitaUSD < 0 {
		return Result{}, domain.Invalid("gdp_per_capita_usd must be non-negative")
	}
	if in.MalariaRiskScore < 0 || in.MalariaRiskScore > 100 {
		return Result{}, domain.Invalid("malaria_risk_score must be in [0, 100]")
	}

	heat := heatDALYPerLossUnit * physics.ProductivityLoss(in.WBGT)
	malaria := malariaDALYAtFull * in.MalariaRiskScore / 100

	postHeat, postMalaria := heat, malaria
	switch classifyIntervention(in.Intervention) {
	case interventionCooling:
		postHeat = heat * (1 - coolingHeatReduction)
	case interventionEradication:
		postMalaria = malaria * (1 - eradicationMalariaCut)
	}

	thousands := float64(in.Population) / 1000
	baseline := (heat + malaria) * thousands
	post := (postHeat + postMalaria) * thousands

	valuePerDALY := valuePerDALYGDPMultiplier * in.GDPPerCapitaUSD
	return Result{
		BaselineDALYs:             baseline,
		PostDALYs:                 post,
		AvertedDALYs:              baseline - post,
		HeatComponentPer1000:      heat,
		MalariaComponentPer1000:   malaria,
		ValuePerDALYUSD:           valuePerDALY,
		EconomicValuePreservedUSD: (baseline - post) * valuePerDALY,
	}, nil
}

type interventionClass int

const (
	interventionNone interventionClass = iota
	interventionCooling
	interventionEradication
)

func classifyIntervention(kind string) interventionClass {
	norm := strings.ToLower(strings.ReplaceAll(kind, "_", " "))
	switch {
	case strings.Contains(norm, "cooling"):
		return interventionCooling
	case strings.Contains(norm, "eradication") || strings.Contains(norm, "vector"):
		return interventionEradication
	default:
		return interventionNone
	}
}
