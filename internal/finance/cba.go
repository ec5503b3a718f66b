package finance

import "math"

// CBAParams describes a multi-year adaptation investment appraised against
// doing nothing. Annual figures are expected values in USD; the insurance
// reduction and all rates are fractions.
type CBAParams struct {
	Years        int
	DiscountRate float64

	// Do-nothing stream.
	BaselineDamageUSD   float64
	InsurancePremiumUSD float64

	// Intervention stream.
	CapexUSD              float64
	OpexUSD               float64
	ResidualDamageUSD     float64
	InsuranceReductionPct float64
	CarbonRevenueUSD      float64
}

// CBAYear is one row of the cost-benefit time series.
type CBAYear struct {
	Year                int     `json:"year"`
	BaselineCostUSD     float64 `json:"baseline_cost_usd"`
	InterventionCostUSD float64 `json:"intervention_cost_usd"`
	NetBenefitUSD       float64 `json:"net_benefit_usd"`
	DiscountedNetUSD    float64 `json:"discounted_net_usd"`
	CumulativeNetUSD    float64 `json:"cumulative_net_usd"`
}

// CBAResult is the appraisal: the per-year series, discounted totals, the
// breakeven year (first year the discounted cumulative crosses zero), and
// total ROI as a fraction of the discounted investment.
type CBAResult struct {
	Series        []CBAYear `json:"series"`
	NPVUSD        float64   `json:"npv_usd"`
	BCR           float64   `json:"bcr"`
	BreakevenYear *int      `json:"breakeven_year,omitempty"`
	TotalROI      float64   `json:"total_roi"`
}

// CBASeries builds the discounted cost-benefit time series. The baseline
// stream pays expected damage plus the full insurance premium every year;
// the intervention stream pays CAPEX up front, then OPEX plus residual
// damage plus a reduced premium, offset by carbon revenue.
func CBASeries(p CBAParams) CBAResult {
	series := make([]CBAYear, 0, p.Years+1)
	reducedPremium := p.InsurancePremiumUSD * (1 - p.InsuranceReductionPct)

	cumulative := 0.0
	totalInvestment := 0.0
	var breakeven *int

	for t := 0; t <= p.Years; t++ {
		disc := math.Pow(1+p.DiscountRate, float64(t))

		baseline := 0.0
		intervention := 0.0
		if t == 0 {
			intervention = p.CapexUSD
		} else {
			baseline = p.BaselineDamageUSD + p.InsurancePremiumUSD
			intervention = p.OpexUSD + p.ResidualDamageUSD + reducedPremium - p.CarbonRevenueUSD
		}

		net := baseline - intervention
		discNet := net / disc
		cumulative += discNet
		totalInvestment += intervention / disc

		if breakeven == nil && cumulative >= 0 && t > 0 {
			y := t
			breakeven = &y
		}

		series = append(series, CBAYear{
			Year:                t,
			BaselineCostUSD:     baseline,
			InterventionCostUSD: intervention,
			NetBenefitUSD:       net,
			DiscountedNetUSD:    discNet,
			CumulativeNetUSD:    cumulative,
		})
	}

	roi := 0.0
	if totalInvestment > 0 {
		roi = cumulative / totalInvestment
	}

	// The net series doubles as a cash-flow vector for NPV/BCR.
	flows := make([]float64, len(series))
	for i, row := range series {
		flows[i] = row.NetBenefitUSD
	}

	return CBAResult{
		Series:        series,
		NPVUSD:        NPV(flows, p.DiscountRate),
		BCR:           BCR(flows, p.DiscountRate),
		BreakevenYear: breakeven,
		TotalROI:      roi,
	}
}
