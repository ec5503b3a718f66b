package domain

// StressCategory buckets a hazard magnitude for presentation.
type StressCategory string

const (
	StressLow      StressCategory = "Low"
	StressModerate StressCategory = "Moderate"
	StressHigh     StressCategory = "High"
	StressVeryHigh StressCategory = "Very High"
	StressExtreme  StressCategory = "Extreme"
)

// PhysicsResult is the hazard-magnitude output of a physics kernel. Only the
// fields relevant to the dispatched kernel are populated. Fractions are in
// [0,1] except YieldPct, which follows the agronomic 0..100 convention.
type PhysicsResult struct {
	// Agriculture
	YieldPct          float64 `json:"yield_pct,omitempty"`
	ResilientYieldPct float64 `json:"resilient_yield_pct,omitempty"`

	// Coastal
	RunupM float64 `json:"runup_m,omitempty"`

	// Urban / flash flood
	DepthCM      float64 `json:"depth_cm,omitempty"`
	FloodAreaKM2 float64 `json:"flood_area_km2,omitempty"`
	TWIThreshold float64 `json:"twi_threshold,omitempty"`

	// Intervention counterfactual: populated when an attached intervention
	// changes the kernel inputs, holding the no-intervention run alongside.
	BaselineDepthCM  float64 `json:"baseline_depth_cm,omitempty"`
	BaselineRunupM   float64 `json:"baseline_runup_m,omitempty"`
	AvoidedDamagePct float64 `json:"avoided_damage_pct,omitempty"`

	// Heat / health
	WBGT                float64 `json:"wbgt,omitempty"`
	ProductivityLossPct float64 `json:"productivity_loss_pct,omitempty"`
	MalariaRiskScore    float64 `json:"malaria_risk_score,omitempty"`

	// Common
	DamagePct float64        `json:"damage_pct"`
	Stress    StressCategory `json:"stress_category"`
}

// LifespanAdjustment records how climate stress shortens an asset's life.
// AdjustedYears is never below one year.
type LifespanAdjustment struct {
	InitialYears    float64 `json:"initial_years"`
	RawPenaltyYears float64 `json:"raw_penalty_years"`
	RescueApplied   bool    `json:"rescue_applied"`
	PenaltyYears    float64 `json:"penalty_years"`
	AdjustedYears   float64 `json:"adjusted_years"`

	// OpexPenaltyPct is the incremental OPEX as a fraction of base OPEX.
	OpexPenaltyPct float64 `json:"opex_penalty_pct"`
}

// FinancialAssumptions pins the inputs a financial result was computed from.
type FinancialAssumptions struct {
	CapexUSD      float64 `json:"capex_usd"`
	OpexUSD       float64 `json:"opex_usd"`
	DiscountRate  float64 `json:"discount_rate"`
	LifespanYears int     `json:"lifespan_years"`
	PricePerTon   float64 `json:"price_per_ton,omitempty"`
}

// FinancialResult is deterministic under fixed inputs.
type FinancialResult struct {
	NPVUSD              float64              `json:"npv_usd"`
	BCR                 float64              `json:"bcr"`
	PaybackYears        *float64             `json:"payback_years,omitempty"`
	CumulativeCashFlow  []float64            `json:"cumulative_cash_flow"`
	IncrementalCashFlow []float64            `json:"incremental_cash_flow"`
	Assumptions         FinancialAssumptions `json:"assumptions"`
}

// ConfidenceTier grades Monte-Carlo dispersion relative to the mean.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "High"
	ConfidenceMedium ConfidenceTier = "Medium"
	ConfidenceLow    ConfidenceTier = "Low"
)

// MonteCarloResult aggregates the NPV trials of one asset.
type MonteCarloResult struct {
	MeanNPV            float64        `json:"mean_npv"`
	StdevNPV           float64        `json:"stdev_npv"`
	VaR95              float64        `json:"var_95"`
	VaR99              float64        `json:"var_99"`
	DefaultProbability float64        `json:"default_probability"` // fraction of trials with NPV < 0
	Confidence         ConfidenceTier `json:"confidence"`
	Trials             int            `json:"trials"`
	Incomplete         bool           `json:"incomplete,omitempty"`
}

// SpatialResult scales monetary risk by fractional exposure.
type SpatialResult struct {
	AreaKM2           float64 `json:"area_km2"`
	Centroid          Point   `json:"centroid"`
	Exposure          float64 `json:"exposure"` // fraction in [0.05, 0.95]
	ValueAtRiskUSD    float64 `json:"value_at_risk_usd"`
	ProtectedValueUSD float64 `json:"protected_value_usd"`
}

// Report is the full per-asset output of one scenario run.
type Report struct {
	AssetID    string             `json:"asset_id"`
	RunID      string             `json:"run_id"`
	Kind       ProjectKind        `json:"project_type"`
	Scenario   Scenario           `json:"scenario"`
	Hazard     HazardSample       `json:"hazard"`
	Physics    PhysicsResult      `json:"physics"`
	Lifespan   LifespanAdjustment `json:"lifespan"`
	Financial  FinancialResult    `json:"financial"`
	MonteCarlo MonteCarloResult   `json:"monte_carlo"`
	Spatial    *SpatialResult     `json:"spatial,omitempty"`
	Degraded   bool               `json:"degraded,omitempty"`
	Seed       uint64             `json:"seed"`

	// AvoidedLossUSD is the expected annual loss the adaptation measure
	// prevents; Recommendation is "resilient" or "standard" for agriculture
	// assets, empty elsewhere.
	AvoidedLossUSD float64 `json:"avoided_loss_usd,omitempty"`
	Recommendation string  `json:"recommendation,omitempty"`
}

// ROI returns NPV over capital deployed, the ranking metric used by the
// rating layer. Zero capex yields zero to keep ranks total.
func (r *Report) ROI() float64 {
	if r.Financial.Assumptions.CapexUSD <= 0 {
		return 0
	}
	return r.Financial.NPVUSD / r.Financial.Assumptions.CapexUSD
}

// CreditRating grades from default probability. Ordered best to worst.
type CreditRating string

const (
	RatingAAA CreditRating = "AAA"
	RatingAA  CreditRating = "AA"
	RatingA   CreditRating = "A"
	RatingBBB CreditRating = "BBB"
	RatingBB  CreditRating = "BB"
	RatingB   CreditRating = "B"
	RatingC   CreditRating = "C"
)

// Outlook classifies the temporal rating trajectory.
type Outlook string

const (
	OutlookStable        Outlook = "Stable"
	OutlookPositive      Outlook = "Positive"
	OutlookNegativeWatch Outlook = "Negative Watch"
	OutlookUnknown       Outlook = "Unknown"
)

// TemporalPoint is one sample of the time-travel sweep.
type TemporalPoint struct {
	Year        int          `json:"year"`
	NPVUSD      float64      `json:"npv_usd"`
	DefaultProb float64      `json:"default_probability"`
	Rating      CreditRating `json:"rating"`
}

// TemporalTrajectory holds the sweep samples (2030, 2040, 2050) plus the
// interpolated year where NPV first crosses zero, when it does. Years are
// strictly increasing.
type TemporalTrajectory struct {
	Points            []TemporalPoint `json:"points"`
	StrandedAssetYear *float64        `json:"stranded_asset_year,omitempty"`
}

// SectorStats summarizes the asset's project-type peer group.
type SectorStats struct {
	Sector    ProjectKind `json:"sector"`
	Count     int         `json:"count"`
	MeanNPV   float64     `json:"mean_npv"`
	MedianNPV float64     `json:"median_npv"`
}

// RatedAsset decorates a report with its credit grade and peer ranking.
type RatedAsset struct {
	Report *Report `json:"report"`

	Rating              CreditRating `json:"credit_rating"`
	InvestmentGrade     bool         `json:"investment_grade"`
	SectorRankByNPV     int          `json:"sector_rank_by_npv"`
	SectorRankByROI     int          `json:"sector_rank_by_roi"`
	NPVPercentile       float64      `json:"npv_percentile"`
	ROIPercentile       float64      `json:"roi_percentile"`
	RiskPercentile      float64      `json:"risk_percentile"`
	CompositePercentile float64      `json:"composite_percentile"`
	SectorStats         SectorStats  `json:"sector_stats"`

	Outlook                Outlook             `json:"outlook"`
	ProjectedDowngradeYear *float64            `json:"projected_downgrade_year,omitempty"`
	Trajectory             *TemporalTrajectory `json:"trajectory,omitempty"`
}

// CorrelationClass labels an asset's co-movement with the rest of the book.
type CorrelationClass string

const (
	CorrelationHedge        CorrelationClass = "Hedge"
	CorrelationNeutral      CorrelationClass = "Neutral"
	CorrelationConcentrator CorrelationClass = "Concentrator"
)

// PortfolioReport aggregates a batch run.
type PortfolioReport struct {
	TotalAssets       int            `json:"total_assets"`
	Successful        int            `json:"successful"`
	Failed            int            `json:"failed"`
	TotalValueUSD     float64        `json:"total_value_usd"`
	TotalVaRUSD       float64        `json:"total_var_usd"`
	AvgResilience     float64        `json:"avg_resilience"`
	TotalNPV          float64        `json:"total_npv"`
	TotalExpectedLoss float64        `json:"total_expected_loss"`
	RiskExposurePct   float64        `json:"risk_exposure_pct"`
	CropDistribution  map[string]int `json:"crop_distribution"`
}
