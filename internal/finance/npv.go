// Package finance implements the deterministic financial kernel: discounted
// cash-flow mathematics, the agriculture cash-flow builder, green-bond
// amortization, and the multi-year cost-benefit series.
//
// Conventions: all monetary values are USD float64; rates are fractions
// (0.10, never 10). Rounding to two decimals happens only at presentation.
package finance

import "math"

// NPV discounts a cash-flow vector where index 0 is year zero (undiscounted)
// and index t is year t: sum of CF_t / (1+r)^t.
func NPV(cashFlows []float64, discountRate float64) float64 {
	npv := 0.0
	for t, cf := range cashFlows {
		npv += cf / math.Pow(1+discountRate, float64(t))
	}
	return npv
}

// BCR is the benefit-cost ratio: present value of positive flows over the
// present value of the magnitudes of negative flows. A costless series has
// no meaningful ratio and reports zero.
func BCR(cashFlows []float64, discountRate float64) float64 {
	benefits, costs := 0.0, 0.0
	for t, cf := range cashFlows {
		pv := cf / math.Pow(1+discountRate, float64(t))
		if pv >= 0 {
			benefits += pv
		} else {
			costs += -pv
		}
	}
	if costs == 0 {
		return 0
	}
	return benefits / costs
}

// Payback returns the year (fractional, interpolated linearly within the
// crossing year) when cumulative undiscounted cash flow first reaches zero,
// or nil when it never does.
func Payback(cashFlows []float64) *float64 {
	cum := 0.0
	for t, cf := range cashFlows {
		prev := cum
		cum += cf
		if cum >= 0 {
			if t == 0 || cf == 0 {
				y := float64(t)
				return &y
			}
			// prev < 0 <= cum: cross within year t.
			y := float64(t-1) + (-prev)/cf
			return &y
		}
	}
	return nil
}

// Cumulative returns the running sum of a cash-flow vector.
func Cumulative(cashFlows []float64) []float64 {
	out := make([]float64, len(cashFlows))
	cum := 0.0
	for i, cf := range cashFlows {
		cum += cf
		out[i] = cum
	}
	return out
}
