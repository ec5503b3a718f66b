// Package runner executes one asset through the full simulation pipeline:
// hazard normalization, physics dispatch, lifespan and OPEX degradation,
// cash flows and NPV, driver-perturbation Monte-Carlo, and optional spatial
// scaling. A run is a pure function of (Asset, Scenario, HazardSample, seed)
// once the hazard sample is in hand; re-execution reproduces the report bit
// for bit.
package runner

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atlasclimate/atlas/internal/catalog"
	"github.com/atlasclimate/atlas/internal/config"
	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/finance"
	"github.com/atlasclimate/atlas/internal/lifespan"
	"github.com/atlasclimate/atlas/internal/montecarlo"
	"github.com/atlasclimate/atlas/internal/physics"
	"github.com/atlasclimate/atlas/internal/spatial"
	"github.com/atlasclimate/atlas/internal/surrogate"
)

// Annualization constants for converting a damage fraction into an expected
// annual loss: a damaging event is a one-in-ten-year design event, a working
// year has 260 days, a revenue year 365.
const (
	annualEventProbability = 0.1
	workingDaysPerYear     = 260
	revenueDaysPerYear     = 365

	defaultTrials = 500

	// Fallback commodity price when the crop has no commodity entry.
	fallbackPricePerTonUSD = 200.0
)

// Per-kind financial defaults, used when neither the asset overrides nor the
// process configuration supplies a value.
var kindDefaults = map[domain.ProjectKind]domain.FinancialAssumptions{
	domain.ProjectAgriculture: {CapexUSD: 2_000, OpexUSD: 425, DiscountRate: 0.10, LifespanYears: 10},
	domain.ProjectCoastal:     {CapexUSD: 500_000, OpexUSD: 25_000, DiscountRate: 0.08, LifespanYears: 30},
	domain.ProjectUrbanFlood:  {CapexUSD: 250_000, OpexUSD: 15_000, DiscountRate: 0.08, LifespanYears: 25},
	domain.ProjectFlashFlood:  {CapexUSD: 250_000, OpexUSD: 15_000, DiscountRate: 0.08, LifespanYears: 25},
	domain.ProjectHealth:      {CapexUSD: 100_000, OpexUSD: 8_000, DiscountRate: 0.08, LifespanYears: 15},
}

// HazardSource is the slice of the hazard service the runner needs.
type HazardSource interface {
	Sample(ctx context.Context, lat, lon float64) (domain.HazardSample, error)
}

// Runner executes scenario runs. It is immutable after construction and safe
// for concurrent use.
type Runner struct {
	log      zerolog.Logger
	hazards  HazardSource
	models   *surrogate.Registry
	catalog  *catalog.Catalog
	defaults config.FinancialDefaults
}

// New builds a runner. The surrogate registry may be nil (closed-form
// fallbacks only).
func New(hazards HazardSource, models *surrogate.Registry, cat *catalog.Catalog, defaults config.FinancialDefaults, log zerolog.Logger) *Runner {
	return &Runner{
		log:      log.With().Str("component", "runner").Logger(),
		hazards:  hazards,
		models:   models,
		catalog:  cat,
		defaults: defaults,
	}
}

// Run fetches the hazard sample for the asset's location and executes the
// pipeline. A zero seed derives a stable one from the coordinate so repeated
// point queries agree.
func (r *Runner) Run(ctx context.Context, asset *domain.Asset, sc domain.Scenario, seed uint64) (*domain.Report, error) {
	if err := validate(asset, sc); err != nil {
		return nil, err
	}

	sample, err := r.hazards.Sample(ctx, asset.Location.Lat, asset.Location.Lon)
	if err != nil {
		return nil, err
	}
	return r.RunWithSample(ctx, asset, sc, sample, seed)
}

// RunWithSample executes the pipeline over an already-fetched hazard sample.
func (r *Runner) RunWithSample(ctx context.Context, asset *domain.Asset, sc domain.Scenario, sample domain.HazardSample, seed uint64) (*domain.Report, error) {
	if err := validate(asset, sc); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = locationSeed(asset.Location.Lat, asset.Location.Lon)
	}

	// Deterministic core under the unperturbed scenario.
	phys, err := r.evaluatePhysics(asset, sc, sample)
	if err != nil {
		return nil, err
	}
	assumptions := r.assumptions(asset)
	life := lifespan.Assess(asset.Kind, sc, float64(assumptions.LifespanYears), asset.InterventionKind())
	fin := r.financial(asset, phys, life, assumptions)

	// Monte-Carlo around the drivers: re-run physics + lifespan + finance
	// per perturbation.
	eval := func(p montecarlo.Perturbation) float64 {
		psc := perturb(sc, p)
		pphys, perr := r.evaluatePhysics(asset, psc, sample)
		if perr != nil {
			return fin.NPVUSD
		}
		plife := lifespan.Assess(asset.Kind, psc, float64(assumptions.LifespanYears), asset.InterventionKind())
		return r.financial(asset, pphys, plife, assumptions).NPVUSD
	}
	mc := montecarlo.NPVUncertainty(ctx, eval, montecarlo.DriversFor(asset.Kind), defaultTrials, seed)

	report := &domain.Report{
		AssetID:    asset.ID,
		RunID:      uuid.NewString(),
		Kind:       asset.Kind,
		Scenario:   sc,
		Hazard:     sample,
		Physics:    phys,
		Lifespan:   life,
		Financial:  fin,
		MonteCarlo: mc,
		Degraded:   sample.Degraded(),
		Seed:       seed,
	}
	report.AvoidedLossUSD, report.Recommendation = r.interventionBenefit(asset, phys, fin, assumptions)

	if asset.HasPolygon() {
		fp, perr := spatial.Parse(asset.Polygon)
		if perr != nil {
			return nil, perr
		}
		sp := spatial.Scale(fp, asset.Kind, sc, asset.Exposure.AssetValueUSD, phys.DamagePct)
		report.Spatial = &sp
	}
	return report, nil
}

func validate(asset *domain.Asset, sc domain.Scenario) error {
	if !asset.Kind.Valid() {
		return domain.Invalidf("unknown project type %q", asset.Kind)
	}
	if asset.Kind == domain.ProjectAgriculture && asset.Crop == "" {
		return domain.Invalid("agriculture assets require a crop")
	}
	if err := sc.Validate(); err != nil {
		return err
	}
	return hazardCoordError(asset.Location.Lat, asset.Location.Lon)
}

func hazardCoordError(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return domain.Invalidf("latitude %v outside [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return domain.Invalidf("longitude %v outside [-180, 180]", lon)
	}
	return nil
}

// evaluatePhysics normalizes the hazard sample under the scenario and
// dispatches the project kernel.
func (r *Runner) evaluatePhysics(asset *domain.Asset, sc domain.Scenario, sample domain.HazardSample) (domain.PhysicsResult, error) {
	h := sample.Normalized(sc)

	switch asset.Kind {
	case domain.ProjectAgriculture:
		crop, err := r.catalog.Crop(asset.Crop)
		if err != nil {
			return domain.PhysicsResult{}, err
		}
		return physics.Agriculture(crop, h.Weather.MaxTempC, h.Weather.TotalRainMM, h.Terrain.SoilPH), nil

	case domain.ProjectCoastal:
		in := physics.CoastalInputs{
			WaveHeightM:    h.Coastal.MaxWaveHeightM,
			BeachSlope:     h.Coastal.BeachSlope,
			MangroveWidthM: asset.InterventionParam("mangrove_width_m"),
			ElevationM:     h.Terrain.ElevationM,
			SLRProjectionM: sc.SLRProjectionM,
		}
		model := r.model(surrogate.CoastalRunupModel)
		res := physics.Coastal(in, model)
		if in.MangroveWidthM > 0 {
			bare := in
			bare.MangroveWidthM = 0
			baseline := physics.Coastal(bare, model)
			res.BaselineRunupM = baseline.RunupM
			res.AvoidedDamagePct = math.Max(0, baseline.DamagePct-res.DamagePct)
		}
		return res, nil

	case domain.ProjectUrbanFlood:
		imperv := asset.InterventionParam("imperviousness")
		if imperv == 0 {
			imperv = 0.70 // dense urban default
		}
		in := physics.UrbanFloodInputs{
			RainIntensityMMHr: designStormIntensity(h.Weather.TotalRainMM, sc.RainIntensityPct),
			Imperviousness:    imperv,
			SlopePct:          h.Terrain.SlopePct,
		}
		model := r.model(surrogate.UrbanFloodDepthModel)
		reduced := physics.InterventionImperviousness(imperv, asset.InterventionKind())
		if reduced == imperv {
			return physics.UrbanFlood(in, model), nil
		}
		baseline := physics.UrbanFlood(in, model)
		in.Imperviousness = reduced
		res := physics.UrbanFlood(in, model)
		res.BaselineDepthCM = baseline.DepthCM
		res.AvoidedDamagePct = math.Max(0, baseline.DamagePct-res.DamagePct)
		return res, nil

	case domain.ProjectFlashFlood:
		return physics.FlashFlood(asset.Location.Lat, asset.Location.Lon, sc.RainIntensityPct), nil

	case domain.ProjectHealth:
		res := physics.Heat(h.Weather.MaxTempC, h.HumidityPct())
		res.MalariaRiskScore = physics.MalariaSuitability(h.Weather.MaxTempC, monthlyMeanRain(h))
		return res, nil
	}
	return domain.PhysicsResult{}, domain.Invalidf("unknown project type %q", asset.Kind)
}

func (r *Runner) model(name string) physics.Regressor {
	if r.models == nil {
		return nil
	}
	return r.models.Get(name)
}

// financial builds the cash-flow series and the deterministic financial
// result for the asset under the computed physics and lifespan.
func (r *Runner) financial(asset *domain.Asset, phys domain.PhysicsResult, life domain.LifespanAdjustment, a domain.FinancialAssumptions) domain.FinancialResult {
	years := int(life.AdjustedYears)
	if years < 1 {
		years = 1
	}
	degradedOpex := a.OpexUSD * (1 + life.OpexPenaltyPct)

	var flows []float64
	if asset.Kind == domain.ProjectAgriculture {
		base := cropBaseYield(r.catalog, asset.Crop)
		flows = finance.AgriCashFlows(finance.AgriCashFlowParams{
			CapexUSD:        a.CapexUSD,
			OpexUSD:         degradedOpex,
			PricePerTonUSD:  a.PricePerTon,
			StandardYieldT:  base * phys.YieldPct / 100,
			ResilientYieldT: base * phys.ResilientYieldPct / 100,
			Years:           years,
		})
	} else {
		flows = finance.DamageCashFlows(
			a.CapexUSD,
			annualRevenue(asset),
			annualDamage(asset, phys),
			degradedOpex,
			years,
		)
	}

	a.LifespanYears = years
	return domain.FinancialResult{
		NPVUSD:              finance.NPV(flows, a.DiscountRate),
		BCR:                 finance.BCR(flows, a.DiscountRate),
		PaybackYears:        finance.Payback(flows),
		CumulativeCashFlow:  finance.Cumulative(flows),
		IncrementalCashFlow: flows,
		Assumptions:         a,
	}
}

// interventionBenefit quantifies the expected annual loss the adaptation
// measure prevents. Agriculture compares the resilient seed against the
// standard one and recommends whichever the NPV favors; structural kinds
// price the counterfactual damage gap at the design-event frequency.
func (r *Runner) interventionBenefit(asset *domain.Asset, phys domain.PhysicsResult, fin domain.FinancialResult, a domain.FinancialAssumptions) (float64, string) {
	if asset.Kind == domain.ProjectAgriculture {
		gain := (phys.ResilientYieldPct - phys.YieldPct) / 100 *
			cropBaseYield(r.catalog, asset.Crop) * a.PricePerTon
		if gain < 0 {
			gain = 0
		}
		if fin.NPVUSD > 0 {
			return gain, "resilient"
		}
		return gain, "standard"
	}
	if phys.AvoidedDamagePct > 0 {
		return asset.Exposure.AssetValueUSD * phys.AvoidedDamagePct * annualEventProbability, ""
	}
	return 0, ""
}

// assumptions resolves the financial inputs: per-kind defaults, overlaid by
// process configuration, overlaid by per-asset overrides.
func (r *Runner) assumptions(asset *domain.Asset) domain.FinancialAssumptions {
	a := kindDefaults[asset.Kind]

	if r.defaults.CapexUSD > 0 {
		a.CapexUSD = r.defaults.CapexUSD
	}
	if r.defaults.OpexUSD > 0 {
		a.OpexUSD = r.defaults.OpexUSD
	}
	if r.defaults.DiscountRate > 0 {
		a.DiscountRate = r.defaults.DiscountRate
	}
	if r.defaults.Years > 0 {
		a.LifespanYears = r.defaults.Years
	}

	if o := asset.Financials; o != nil {
		if o.CapexUSD != nil {
			a.CapexUSD = *o.CapexUSD
		}
		if o.OpexUSD != nil {
			a.OpexUSD = *o.OpexUSD
		}
		if o.DiscountRate != nil {
			a.DiscountRate = *o.DiscountRate
		}
		if o.LifespanYears != nil {
			a.LifespanYears = *o.LifespanYears
		}
	}

	if asset.Kind == domain.ProjectAgriculture {
		a.PricePerTon = fallbackPricePerTonUSD
		if com, err := r.catalog.Commodity(asset.Crop); err == nil {
			a.PricePerTon = com.PriceUSDPerTon
		}
		if o := asset.Financials; o != nil && o.PricePerTon != nil {
			a.PricePerTon = *o.PricePerTon
		}
	}
	return a
}

// annualRevenue is what the asset earns in a year absent damage.
func annualRevenue(asset *domain.Asset) float64 {
	if asset.Exposure.DailyRevenueUSD > 0 {
		return asset.Exposure.DailyRevenueUSD * revenueDaysPerYear
	}
	// Health assets earn through their workforce.
	return float64(asset.Exposure.WorkforceSize) * asset.Exposure.DailyWageUSD * workingDaysPerYear
}

// annualDamage converts the damage fraction into an expected annual USD
// loss. Structural kinds lose asset value at the design-event frequency;
// health assets lose workforce output continuously.
func annualDamage(asset *domain.Asset, phys domain.PhysicsResult) float64 {
	if asset.Kind == domain.ProjectHealth {
		return float64(asset.Exposure.WorkforceSize) * asset.Exposure.DailyWageUSD *
			workingDaysPerYear * phys.ProductivityLossPct
	}
	return asset.Exposure.AssetValueUSD * phys.DamagePct * annualEventProbability
}

// perturb applies one Monte-Carlo driver draw to the scenario.
func perturb(sc domain.Scenario, p montecarlo.Perturbation) domain.Scenario {
	out := sc
	out.TempDeltaC += p.TempDeltaC
	out.GlobalWarmingC += p.TempDeltaC
	out.RainPctChange += p.RainPctChange
	out.SLRProjectionM = math.Max(0, out.SLRProjectionM+p.SLRDeltaM)
	out.RainIntensityPct = math.Max(0, out.RainIntensityPct+p.IntensityDeltaPct)
	return out
}

// designStormIntensity derives a short-duration storm intensity (mm/hr)
// from the annual total and the scenario's intensity uplift. The 1% factor
// approximates the share of the annual total a design storm delivers in an
// hour.
func designStormIntensity(annualRainMM, intensityPct float64) float64 {
	return annualRainMM * 0.01 * (1 + intensityPct)
}

func monthlyMeanRain(h domain.HazardSample) float64 {
	total := 0.0
	for _, v := range h.Monthly.RainfallMM {
		total += v
	}
	if total == 0 {
		total = h.Weather.TotalRainMM
	}
	return total / 12
}

func cropBaseYield(cat *catalog.Catalog, crop string) float64 {
	if c, err := cat.Crop(crop); err == nil && c.BaseYieldTHa > 0 {
		return c.BaseYieldTHa
	}
	return 1.0
}

// locationSeed derives a stable seed from the 4-decimal-rounded coordinate.
func locationSeed(lat, lon float64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range []float64{lat, lon} {
		bits := math.Float64bits(math.Round(v*1e4) / 1e4)
		for i := 0; i < 8; i++ {
			buf[i] = byte(bits >> (8 * i))
		}
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
