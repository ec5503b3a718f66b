package finance

import "math"

// GreenBondParams describes a green-bond financing of a principal at a
// standard annual rate with a greenium discount in basis points.
type GreenBondParams struct {
	PrincipalUSD float64
	AnnualRate   float64 // fraction
	GreeniumBps  float64
	TermYears    int
}

// GreenBondResult reports the annuity payments under both rates and the
// savings the greenium earns.
type GreenBondResult struct {
	StandardPaymentUSD float64 `json:"standard_payment_usd"`
	GreenPaymentUSD    float64 `json:"green_payment_usd"`
	AnnualSavingsUSD   float64 `json:"annual_savings_usd"`
	LifetimeSavingsUSD float64 `json:"lifetime_savings_usd"`
	EffectiveRate      float64 `json:"effective_rate"`
}

// AnnuityPayment is the level annual payment amortizing principal P at rate
// r over n years: P*r / (1 - (1+r)^-n). A zero rate degenerates to P/n.
func AnnuityPayment(principal, rate float64, years int) float64 {
	if years <= 0 {
		return principal
	}
	if rate == 0 {
		return principal / float64(years)
	}
	return principal * rate / (1 - math.Pow(1+rate, -float64(years)))
}

// GreenBond compares standard financing against greenium-discounted
// financing of the same principal and term.
func GreenBond(p GreenBondParams) GreenBondResult {
	greenRate := p.AnnualRate - p.GreeniumBps/10000
	if greenRate < 0 {
		greenRate = 0
	}

	std := AnnuityPayment(p.PrincipalUSD, p.AnnualRate, p.TermYears)
	green := AnnuityPayment(p.PrincipalUSD, greenRate, p.TermYears)
	saving := std - green

	return GreenBondResult{
		StandardPaymentUSD: std,
		GreenPaymentUSD:    green,
		AnnualSavingsUSD:   saving,
		LifetimeSavingsUSD: saving * float64(p.TermYears),
		EffectiveRate:      greenRate,
	}
}
