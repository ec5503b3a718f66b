package server

import (
	"net/http"

	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/finance"
	"github.com/atlasclimate/atlas/internal/montecarlo"
	"github.com/atlasclimate/atlas/internal/priceshock"
	"github.com/atlasclimate/atlas/internal/publichealth"
)

func (s *Server) handlePriceShock(w http.ResponseWriter, r *http.Request) {
	var in priceshock.Input
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err)
		return
	}
	res, err := priceshock.Compute(s.deps.Catalog, in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, res)
}

// cbaRequest mirrors finance.CBAParams with wire names.
type cbaRequest struct {
	Years                 int     `json:"years"`
	DiscountRate          float64 `json:"discount_rate"`
	BaselineDamageUSD     float64 `json:"baseline_damage_usd"`
	InsurancePremiumUSD   float64 `json:"insurance_premium_usd"`
	CapexUSD              float64 `json:"capex_usd"`
	OpexUSD               float64 `json:"opex_usd"`
	ResidualDamageUSD     float64 `json:"residual_damage_usd"`
	InsuranceReductionPct float64 `json:"insurance_reduction_pct"`
	CarbonRevenueUSD      float64 `json:"carbon_revenue_usd"`
}

func (s *Server) handleCBA(w http.ResponseWriter, r *http.Request) {
	var req cbaRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := validateCBA(req); err != nil {
		respondError(w, err)
		return
	}

	res := finance.CBASeries(finance.CBAParams{
		Years:                 req.Years,
		DiscountRate:          req.DiscountRate,
		BaselineDamageUSD:     req.BaselineDamageUSD,
		InsurancePremiumUSD:   req.InsurancePremiumUSD,
		CapexUSD:              req.CapexUSD,
		OpexUSD:               req.OpexUSD,
		ResidualDamageUSD:     req.ResidualDamageUSD,
		InsuranceReductionPct: req.InsuranceReductionPct,
		CarbonRevenueUSD:      req.CarbonRevenueUSD,
	})
	respondSuccess(w, res)
}

// greenBondRequest mirrors finance.GreenBondParams with wire names.
type greenBondRequest struct {
	PrincipalUSD float64 `json:"principal_usd"`
	AnnualRate   float64 `json:"annual_rate"`
	GreeniumBps  float64 `json:"greenium_bps"`
	TermYears    int     `json:"term_years"`
}

func (s *Server) handleGreenBond(w http.ResponseWriter, r *http.Request) {
	var req greenBondRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := validateGreenBond(req); err != nil {
		respondError(w, err)
		return
	}

	res := finance.GreenBond(finance.GreenBondParams{
		PrincipalUSD: req.PrincipalUSD,
		AnnualRate:   req.AnnualRate,
		GreeniumBps:  req.GreeniumBps,
		TermYears:    req.TermYears,
	})
	respondSuccess(w, res)
}

// damageCVaRRequest mirrors montecarlo.DamageSimParams with wire names.
type damageCVaRRequest struct {
	AssetValueUSD float64 `json:"asset_value_usd"`
	MeanDamagePct float64 `json:"mean_damage_pct"`
	VolatilityPct float64 `json:"volatility_pct"`
	Simulations   int     `json:"num_simulations"`
	Seed          uint64  `json:"seed,omitempty"`
}

func (s *Server) handleDamageCVaR(w http.ResponseWriter, r *http.Request) {
	var req damageCVaRRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Simulations == 0 {
		req.Simulations = 10_000
	}

	res, err := montecarlo.SimulateDamage(r.Context(), montecarlo.DamageSimParams{
		AssetValueUSD: req.AssetValueUSD,
		MeanDamagePct: req.MeanDamagePct,
		VolatilityPct: req.VolatilityPct,
		Simulations:   req.Simulations,
		Seed:          req.Seed,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, res)
}

func validateCBA(req cbaRequest) error {
	if req.Years <= 0 || req.Years > 100 {
		return domain.Invalid("years must be in [1, 100]")
	}
	if req.DiscountRate < 0 || req.DiscountRate >= 1 {
		return domain.Invalid("discount_rate must be a fraction in [0, 1)")
	}
	if req.InsuranceReductionPct < 0 || req.InsuranceReductionPct > 1 {
		return domain.Invalid("insurance_reduction_pct must be a fraction in [0, 1]")
	}
	return nil
}

func validateGreenBond(req greenBondRequest) error {
	if req.PrincipalUSD <= 0 {
		return domain.Invalid("principal_usd must be positive")
	}
	if req.AnnualRate < 0 || req.AnnualRate >= 1 {
		return domain.Invalid("annual_rate must be a fraction in [0, 1)")
	}
	if req.TermYears <= 0 {
		return domain.Invalid("term_years must be positive")
	}
	return nil
}

func (s *Server) handleDALY(w http.ResponseWriter, r *http.Request) {
	var in publichealth.Input
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err)
		return
	}
	res, err := publichealth.Assess(in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, res)
}
