package runner

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasclimate/atlas/internal/catalog"
	"github.com/atlasclimate/atlas/internal/config"
	"github.com/atlasclimate/atlas/internal/domain"
)

type fixedHazards struct {
	sample domain.HazardSample
}

func (f fixedHazards) Sample(_ context.Context, _, _ float64) (domain.HazardSample, error) {
	return f.sample, nil
}

func tropicalSample() domain.HazardSample {
	return domain.HazardSample{
		Weather: domain.WeatherSample{MaxTempC: 29, TotalRainMM: 1100, Provenance: domain.ProvenanceUpstream},
		Terrain: domain.TerrainSample{ElevationM: 3, SoilPH: 6.3, SlopePct: 2, Provenance: domain.ProvenanceUpstream},
		Coastal: domain.CoastalSample{MaxWaveHeightM: 2.5, BeachSlope: 0.09, Provenance: domain.ProvenanceUpstream},
		Monthly: domain.MonthlySample{
			RainfallMM: [12]float64{90, 90, 95, 95, 95, 95, 95, 95, 95, 90, 85, 80},
			Provenance: domain.ProvenanceUpstream,
		},
	}
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	cat, err := catalog.Load("", "")
	require.NoError(t, err)
	return New(fixedHazards{tropicalSample()}, nil, cat, config.FinancialDefaults{}, zerolog.Nop())
}

func maizeAsset() *domain.Asset {
	return &domain.Asset{
		ID:       "farm-1",
		Kind:     domain.ProjectAgriculture,
		Location: domain.Point{Lat: 6.5, Lon: 3.4},
		Crop:     "maize",
		Exposure: domain.Exposure{AssetValueUSD: 50_000},
	}
}

func TestRun_ReproducibleUnderSeed(t *testing.T) {
	r := newTestRunner(t)
	sc := domain.Scenario{Year: 2050, TempDeltaC: 1.5, RainPctChange: -0.10, GlobalWarmingC: 1.5}

	a, err := r.Run(context.Background(), maizeAsset(), sc, 42)
	require.NoError(t, err)
	b, err := r.Run(context.Background(), maizeAsset(), sc, 42)
	require.NoError(t, err)

	// Everything except the run id reproduces bit for bit.
	assert.Equal(t, a.Physics, b.Physics)
	assert.Equal(t, a.Lifespan, b.Lifespan)
	assert.Equal(t, a.Financial, b.Financial)
	assert.Equal(t, a.MonteCarlo, b.MonteCarlo)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRun_ZeroSeedDerivesFromLocation(t *testing.T) {
	r := newTestRunner(t)
	sc := domain.Scenario{Year: 2050}

	a, err := r.Run(context.Background(), maizeAsset(), sc, 0)
	require.NoError(t, err)
	b, err := r.Run(context.Background(), maizeAsset(), sc, 0)
	require.NoError(t, err)

	assert.NotZero(t, a.Seed)
	assert.Equal(t, a.Seed, b.Seed)
	assert.Equal(t, a.MonteCarlo, b.MonteCarlo)
}

func TestRun_AgriculturePipeline(t *testing.T) {
	r := newTestRunner(t)
	sc := domain.Scenario{Year: 2050, TempDeltaC: 2.0, GlobalWarmingC: 2.0}

	rep, err := r.Run(context.Background(), maizeAsset(), sc, 7)
	require.NoError(t, err)

	// 31 degrees is past the maize critical temperature; standard yield
	// drops while the resilient variety holds.
	assert.Less(t, rep.Physics.YieldPct, 100.0)
	assert.GreaterOrEqual(t, rep.Physics.ResilientYieldPct, rep.Physics.YieldPct)

	// 2 degrees of warming costs agriculture ten lifespan years, leaving
	// the one-year floor as the cash-flow horizon.
	assert.Equal(t, 10.0, rep.Lifespan.RawPenaltyYears)
	assert.Equal(t, 1.0, rep.Lifespan.AdjustedYears)
	assert.Equal(t, 1, rep.Financial.Assumptions.LifespanYears)

	// Commodity catalog wired through to the assumptions.
	assert.Equal(t, 180.0, rep.Financial.Assumptions.PricePerTon)
	assert.Equal(t, domain.ProjectAgriculture, rep.Kind)
	assert.False(t, rep.Degraded)
	assert.NotEmpty(t, rep.RunID)
}

func TestRun_CoastalSeaWallRescue(t *testing.T) {
	r := newTestRunner(t)
	sc := domain.Scenario{Year: 2050, SLRProjectionM: 1.2}

	bare := &domain.Asset{
		ID: "port-1", Kind: domain.ProjectCoastal,
		Location: domain.Point{Lat: 6.42, Lon: 3.41},
		Exposure: domain.Exposure{AssetValueUSD: 5_000_000, DailyRevenueUSD: 10_000},
	}
	walled := *bare
	walled.Intervention = &domain.Intervention{Kind: "sea wall"}

	repBare, err := r.Run(context.Background(), bare, sc, 1)
	require.NoError(t, err)
	repWalled, err := r.Run(context.Background(), &walled, sc, 1)
	require.NoError(t, err)

	assert.Equal(t, 12.0, repBare.Lifespan.RawPenaltyYears)
	assert.False(t, repBare.Lifespan.RescueApplied)
	assert.True(t, repWalled.Lifespan.RescueApplied)
	assert.InDelta(t, 2.4, repWalled.Lifespan.PenaltyYears, 1e-9)
	assert.Greater(t, repWalled.Lifespan.AdjustedYears, repBare.Lifespan.AdjustedYears)
}

func TestRun_HealthHeatAndMalaria(t *testing.T) {
	r := newTestRunner(t)
	sc := domain.Scenario{Year: 2050, TempDeltaC: 3.0}

	asset := &domain.Asset{
		ID: "plant-1", Kind: domain.ProjectHealth,
		Location: domain.Point{Lat: 6.5, Lon: 3.4},
		Exposure: domain.Exposure{WorkforceSize: 200, DailyWageUSD: 20},
	}
	rep, err := r.Run(context.Background(), asset, sc, 3)
	require.NoError(t, err)

	// 32C at 80% humidity: WBGT 30.4, well into the loss band.
	assert.InDelta(t, 30.4, rep.Physics.WBGT, 1e-9)
	assert.Greater(t, rep.Physics.ProductivityLossPct, 0.0)

	// Tropical temperature and rainfall both suit transmission.
	assert.Equal(t, 100.0, rep.Physics.MalariaRiskScore)

	// Health assets carry no structural lifespan penalty.
	assert.Zero(t, rep.Lifespan.RawPenaltyYears)
}

func TestRun_PolygonAddsSpatial(t *testing.T) {
	r := newTestRunner(t)
	asset := maizeAsset()
	asset.Polygon = json.RawMessage(`{
		"type": "Polygon",
		"coordinates": [[[3.40,6.50],[3.42,6.50],[3.42,6.52],[3.40,6.52],[3.40,6.50]]]
	}`)
	asset.Exposure.AssetValueUSD = 250_000

	rep, err := r.Run(context.Background(), asset, domain.Scenario{Year: 2050}, 5)
	require.NoError(t, err)

	require.NotNil(t, rep.Spatial)
	assert.Greater(t, rep.Spatial.AreaKM2, 0.0)
	assert.GreaterOrEqual(t, rep.Spatial.Exposure, 0.05)
	assert.LessOrEqual(t, rep.Spatial.Exposure, 0.95)
	assert.LessOrEqual(t, rep.Spatial.ValueAtRiskUSD, 250_000.0)
	assert.InDelta(t, 6.51, rep.Spatial.Centroid.Lat, 1e-6)
}

func TestRun_Validation(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		asset *domain.Asset
		sc    domain.Scenario
	}{
		{"unknown kind", &domain.Asset{Kind: "volcano"}, domain.Scenario{Year: 2050}},
		{"agriculture without crop", &domain.Asset{Kind: domain.ProjectAgriculture}, domain.Scenario{Year: 2050}},
		{"year out of range", maizeAsset(), domain.Scenario{Year: 2200}},
		{"unknown crop", func() *domain.Asset {
			a := maizeAsset()
			a.Crop = "dragonfruit"
			return a
		}(), domain.Scenario{Year: 2050}},
		{"latitude out of range", func() *domain.Asset {
			a := maizeAsset()
			a.Location.Lat = 91
			return a
		}(), domain.Scenario{Year: 2050}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Run(ctx, tt.asset, tt.sc, 1)
			require.Error(t, err)
			assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
		})
	}
}

func TestRun_DroughtFavorsResilientSeed(t *testing.T) {
	cat, err := catalog.Load("", "")
	require.NoError(t, err)

	// Inland maize belt: hot dry season, rainfall near the bottom of the
	// maize optimum before the scenario takes 30% away.
	sample := domain.HazardSample{
		Weather: domain.WeatherSample{MaxTempC: 27, TotalRainMM: 700, Provenance: domain.ProvenanceUpstream},
		Terrain: domain.TerrainSample{ElevationM: 200, SoilPH: 6.5, SlopePct: 1, Provenance: domain.ProvenanceUpstream},
		Coastal: domain.CoastalSample{Provenance: domain.ProvenanceUpstream},
		Monthly: domain.MonthlySample{Provenance: domain.ProvenanceUpstream},
	}
	r := New(fixedHazards{sample}, nil, cat, config.FinancialDefaults{}, zerolog.Nop())
	sc := domain.Scenario{Year: 2050, TempDeltaC: 3.0, RainPctChange: -0.30}

	price := 4800.0
	contracted := maizeAsset()
	contracted.Financials = &domain.FinancialOverrides{PricePerTon: &price}

	rep, err := r.Run(context.Background(), contracted, sc, 11)
	require.NoError(t, err)

	// 30C beats the standard critical temperature but not the resilient one;
	// 490mm sits under the standard optimum but above the shifted one.
	assert.InDelta(t, 81.6, rep.Physics.YieldPct, 1e-9)
	assert.Equal(t, 100.0, rep.Physics.ResilientYieldPct)

	// The contracted price overrides the commodity catalog.
	assert.Equal(t, 4800.0, rep.Financial.Assumptions.PricePerTon)

	// 18.4% of 5.5 t/ha at 4800 USD/t.
	assert.InDelta(t, 4857.6, rep.AvoidedLossUSD, 1e-6)
	assert.Greater(t, rep.Financial.NPVUSD, 0.0)
	assert.Equal(t, "resilient", rep.Recommendation)

	// At the catalog price the yield gain does not cover the seed program.
	spot, err := r.Run(context.Background(), maizeAsset(), sc, 11)
	require.NoError(t, err)
	assert.Equal(t, 180.0, spot.Financial.Assumptions.PricePerTon)
	assert.Less(t, spot.Financial.NPVUSD, 0.0)
	assert.Equal(t, "standard", spot.Recommendation)
}

func TestRun_SpongeCityCounterfactual(t *testing.T) {
	r := newTestRunner(t)
	asset := &domain.Asset{
		ID: "district-1", Kind: domain.ProjectUrbanFlood,
		Location:     domain.Point{Lat: 6.5, Lon: 3.4},
		Exposure:     domain.Exposure{AssetValueUSD: 10_000_000},
		Intervention: &domain.Intervention{Kind: "sponge_city"},
	}
	sc := domain.Scenario{Year: 2050, RainIntensityPct: 0.20}

	rep, err := r.Run(context.Background(), asset, sc, 9)
	require.NoError(t, err)

	// Sponge city strips 35% of the impervious share, so the counterfactual
	// ponds deeper than the retrofit.
	assert.Greater(t, rep.Physics.BaselineDepthCM, rep.Physics.DepthCM)
	assert.InDelta(t, 0.65, rep.Physics.DepthCM/rep.Physics.BaselineDepthCM, 1e-9)
	assert.Greater(t, rep.Physics.AvoidedDamagePct, 0.0)

	// The avoided loss prices the damage gap at the design-event frequency.
	assert.InDelta(t, 10_000_000*rep.Physics.AvoidedDamagePct*annualEventProbability,
		rep.AvoidedLossUSD, 1e-6)
	assert.Empty(t, rep.Recommendation)
}

func TestRun_UrbanFloodWithoutInterventionHasNoCounterfactual(t *testing.T) {
	r := newTestRunner(t)
	asset := &domain.Asset{
		ID: "district-2", Kind: domain.ProjectUrbanFlood,
		Location: domain.Point{Lat: 6.5, Lon: 3.4},
		Exposure: domain.Exposure{AssetValueUSD: 10_000_000},
	}
	rep, err := r.Run(context.Background(), asset, domain.Scenario{Year: 2050}, 9)
	require.NoError(t, err)

	assert.Zero(t, rep.Physics.BaselineDepthCM)
	assert.Zero(t, rep.Physics.AvoidedDamagePct)
	assert.Zero(t, rep.AvoidedLossUSD)
}

func TestRun_MangroveCounterfactualRunup(t *testing.T) {
	r := newTestRunner(t)
	asset := &domain.Asset{
		ID: "shore-1", Kind: domain.ProjectCoastal,
		Location: domain.Point{Lat: 6.42, Lon: 3.41},
		Exposure: domain.Exposure{AssetValueUSD: 5_000_000, DailyRevenueUSD: 8_000},
		Intervention: &domain.Intervention{
			Kind:   "mangrove",
			Params: map[string]float64{"mangrove_width_m": 100},
		},
	}
	rep, err := r.Run(context.Background(), asset, domain.Scenario{Year: 2050, SLRProjectionM: 1.0}, 4)
	require.NoError(t, err)

	// 100m of forest attenuates run-up by 45%.
	assert.Greater(t, rep.Physics.BaselineRunupM, rep.Physics.RunupM)
	assert.InDelta(t, 0.55, rep.Physics.RunupM/rep.Physics.BaselineRunupM, 1e-9)

	// The asset sits dry either way here, so no damage is avoided.
	assert.Zero(t, rep.Physics.AvoidedDamagePct)
	assert.Zero(t, rep.AvoidedLossUSD)
}

func TestRun_OverridesWinOverDefaults(t *testing.T) {
	cat, err := catalog.Load("", "")
	require.NoError(t, err)
	r := New(fixedHazards{tropicalSample()}, nil, cat,
		config.FinancialDefaults{CapexUSD: 9_999, DiscountRate: 0.12}, zerolog.Nop())

	capex := 3_000.0
	asset := maizeAsset()
	asset.Financials = &domain.FinancialOverrides{CapexUSD: &capex}

	rep, err := r.Run(context.Background(), asset, domain.Scenario{Year: 2050}, 1)
	require.NoError(t, err)

	assert.Equal(t, 3_000.0, rep.Financial.Assumptions.CapexUSD)
	assert.Equal(t, 0.12, rep.Financial.Assumptions.DiscountRate)
}
