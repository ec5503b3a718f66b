// Package priceshock converts crop yield losses into commodity price
// responses through supply elasticity, and grades the forward-contract
// urgency.
package priceshock

import (
	"github.com/atlasclimate/atlas/internal/catalog"
	"github.com/atlasclimate/atlas/internal/domain"
)

// Forward-contract recommendations by yield-loss band (percent).
const (
	RecommendLowRisk  = "LOW RISK"
	RecommendModerate = "MODERATE"
	RecommendHighRisk = "HIGH RISK"
	RecommendUrgent   = "URGENT"
)

// Input is one price-shock query. Yields are tonnes over the same period.
type Input struct {
	Crop           string  `json:"crop"`
	BaselineYieldT float64 `json:"baseline_yield_tons"`
	StressedYieldT float64 `json:"stressed_yield_tons"`
}

// Result is the full price response.
type Result struct {
	Crop               string  `json:"crop"`
	BaselinePriceUSD   float64 `json:"baseline_price_usd_per_ton"`
	ShockedPriceUSD    float64 `json:"shocked_price_usd_per_ton"`
	PriceIncreasePct   float64 `json:"price_increase_pct"`
	PriceDeltaUSD      float64 `json:"price_delta_usd"`
	YieldLossT         float64 `json:"yield_loss_tons"`
	YieldLossPct       float64 `json:"yield_loss_pct"`
	SupplyElasticity   float64 `json:"supply_elasticity"`
	BaselineRevenueUSD float64 `json:"baseline_revenue_usd"`
	StressedRevenueUSD float64 `json:"stressed_revenue_usd"`
	RevenueImpactUSD   float64 `json:"revenue_impact_usd"`
	Recommendation     string  `json:"recommendation"`
}

// Compute resolves the commodity and applies the elasticity model:
// %price = %yield_loss / elasticity; shocked = baseline × (1 + %price/100).
// Stressed revenue reflects selling the reduced harvest at the shocked
// price.
func Compute(cat *catalog.Catalog, in Input) (Result, error) {
	if in.BaselineYieldT <= 0 {
		return Result{}, domain.Invalid("baseline_yield_tons must be positive")
	}
	if in.StressedYieldT < 0 {
		return Result{}, domain.Invalid("stressed_yield_tons must be non-negative")
	}

	com, err := cat.Commodity(in.Crop)
	if err != nil {
		return Result{}, err
	}

	lossT := in.BaselineYieldT - in.StressedYieldT
	if lossT < 0 {
		lossT = 0 // a bumper stressed harvest shocks nothing
	}
	lossPct := lossT / in.BaselineYieldT * 100

	pricePct := 0.0
	if com.SupplyElasticity > 0 {
		pricePct = lossPct / com.SupplyElasticity
	}
	shocked := com.PriceUSDPerTon * (1 + pricePct/100)

	baselineRevenue := in.BaselineYieldT * com.PriceUSDPerTon
	stressedRevenue := in.StressedYieldT * shocked

	return Result{
		Crop:               com.Name,
		BaselinePriceUSD:   com.PriceUSDPerTon,
		ShockedPriceUSD:    shocked,
		PriceIncreasePct:   pricePct,
		PriceDeltaUSD:      shocked - com.PriceUSDPerTon,
		YieldLossT:         lossT,
		YieldLossPct:       lossPct,
		SupplyElasticity:   com.SupplyElasticity,
		BaselineRevenueUSD: baselineRevenue,
		StressedRevenueUSD: stressedRevenue,
		RevenueImpactUSD:   stressedRevenue - baselineRevenue,
		Recommendation:     Recommend(lossPct),
	}, nil
}

// Recommend grades the yield loss (percent) into the contract urgency band.
func Recommend(yieldLossPct float64) string {
	switch {
	case yieldLossPct < 5:
		return RecommendLowRisk
	case yieldLossPct < 15:
		return RecommendModerate
	case yieldLossPct < 30:
		return RecommendHighRisk
	default:
		return RecommendUrgent
	}
}
