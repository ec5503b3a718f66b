package finance

// AgriCashFlowParams drives the resilient-seed investment cash-flow builder.
// Yields are tonnes per season; ResilienceBenefit is the extra fractional
// yield the resilient variety earns on top of its physics yield (seed
// vendors quote 3-8%; zero is a valid input).
type AgriCashFlowParams struct {
	CapexUSD          float64
	OpexUSD           float64
	PricePerTonUSD    float64
	StandardYieldT    float64
	ResilientYieldT   float64
	ResilienceBenefit float64
	Years             int
}

// AgriCashFlows builds the N+1 incremental cash-flow vector of adopting
// resilient seed: year 0 is the negative CAPEX, years 1..N earn the yield
// differential minus OPEX.
func AgriCashFlows(p AgriCashFlowParams) []float64 {
	flows := make([]float64, p.Years+1)
	flows[0] = -p.CapexUSD

	annual := (p.ResilientYieldT*(1+p.ResilienceBenefit)-p.StandardYieldT)*p.PricePerTonUSD - p.OpexUSD
	for t := 1; t <= p.Years; t++ {
		flows[t] = annual
	}
	return flows
}

// DamageCashFlows builds the cash-flow vector of an exposed asset: year 0
// is the negative CAPEX, each following year loses the expected annual
// damage plus climate-degraded OPEX out of revenue.
func DamageCashFlows(capexUSD, annualRevenueUSD, annualDamageUSD, opexUSD float64, years int) []float64 {
	flows := make([]float64, years+1)
	flows[0] = -capexUSD
	for t := 1; t <= years; t++ {
		flows[t] = annualRevenueUSD - annualDamageUSD - opexUSD
	}
	return flows
}
