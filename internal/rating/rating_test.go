package rating

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasclimate/atlas/internal/catalog"
	"github.com/atlasclimate/atlas/internal/config"
	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/runner"
)

func TestFromDefaultProbability_Bands(t *testing.T) {
	tests := []struct {
		prob float64
		want domain.CreditRating
	}{
		{0.000, domain.RatingAAA},
		{0.009, domain.RatingAAA},
		{0.01, domain.RatingAA},
		{0.049, domain.RatingAA},
		{0.05, domain.RatingA},
		{0.10, domain.RatingBBB},
		{0.199, domain.RatingBBB},
		{0.20, domain.RatingBB},
		{0.30, domain.RatingB},
		{0.50, domain.RatingC},
		{1.00, domain.RatingC},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromDefaultProbability(tt.prob), "prob %v", tt.prob)
	}
}

func TestInvestmentGrade(t *testing.T) {
	assert.True(t, InvestmentGrade(domain.RatingAAA))
	assert.True(t, InvestmentGrade(domain.RatingBBB))
	assert.False(t, InvestmentGrade(domain.RatingBB))
	assert.False(t, InvestmentGrade(domain.RatingC))
}

func reportWith(kind domain.ProjectKind, npv, capex, defaultProb float64) *domain.Report {
	return &domain.Report{
		Kind: kind,
		Financial: domain.FinancialResult{
			NPVUSD:      npv,
			Assumptions: domain.FinancialAssumptions{CapexUSD: capex},
		},
		MonteCarlo: domain.MonteCarloResult{DefaultProbability: defaultProb},
	}
}

func TestRateBatch_SectorRanking(t *testing.T) {
	reports := []*domain.Report{
		reportWith(domain.ProjectAgriculture, 1000, 100, 0.02), // best NPV and ROI
		reportWith(domain.ProjectAgriculture, 500, 100, 0.15),
		reportWith(domain.ProjectAgriculture, -200, 100, 0.60),
		reportWith(domain.ProjectCoastal, 9999, 1000, 0.04), // separate sector
	}

	rated := RateBatch(reports)
	require.Len(t, rated, 4)

	assert.Equal(t, domain.RatingAA, rated[0].Rating)
	assert.Equal(t, 1, rated[0].SectorRankByNPV)
	assert.Equal(t, 100.0, rated[0].NPVPercentile)
	assert.True(t, rated[0].InvestmentGrade)

	assert.Equal(t, domain.RatingBBB, rated[1].Rating)
	assert.Equal(t, 2, rated[1].SectorRankByNPV)
	assert.Equal(t, 50.0, rated[1].NPVPercentile)

	assert.Equal(t, domain.RatingC, rated[2].Rating)
	assert.Equal(t, 3, rated[2].SectorRankByNPV)
	assert.Equal(t, 0.0, rated[2].NPVPercentile)
	assert.False(t, rated[2].InvestmentGrade)

	// A sector of one ranks first at the 100th percentile.
	assert.Equal(t, 1, rated[3].SectorRankByNPV)
	assert.Equal(t, 100.0, rated[3].CompositePercentile)

	// Sector stats cover the agriculture peer group only.
	assert.Equal(t, 3, rated[0].SectorStats.Count)
	assert.InDelta(t, (1000+500-200)/3.0, rated[0].SectorStats.MeanNPV, 1e-9)
	assert.Equal(t, 500.0, rated[0].SectorStats.MedianNPV)
}

func TestRateBatch_CompositeWeights(t *testing.T) {
	reports := []*domain.Report{
		reportWith(domain.ProjectAgriculture, 1000, 100, 0.30), // best npv/roi, worst risk
		reportWith(domain.ProjectAgriculture, 100, 100, 0.01),
	}
	rated := RateBatch(reports)

	// 0.4*100 + 0.3*100 + 0.3*0 = 70 for the first asset.
	assert.InDelta(t, 70.0, rated[0].CompositePercentile, 1e-9)
	assert.InDelta(t, 30.0, rated[1].CompositePercentile, 1e-9)
}

func TestAssessOutlook(t *testing.T) {
	mkTraj := func(ratings ...domain.CreditRating) *domain.TemporalTrajectory {
		traj := &domain.TemporalTrajectory{}
		years := []int{2030, 2040, 2050}
		for i, r := range ratings {
			traj.Points = append(traj.Points, domain.TemporalPoint{Year: years[i], Rating: r})
		}
		return traj
	}

	out, _ := AssessOutlook(mkTraj(domain.RatingAA, domain.RatingAA, domain.RatingAA))
	assert.Equal(t, domain.OutlookStable, out)

	out, _ = AssessOutlook(mkTraj(domain.RatingBB, domain.RatingBBB, domain.RatingA))
	assert.Equal(t, domain.OutlookPositive, out)

	out, _ = AssessOutlook(nil)
	assert.Equal(t, domain.OutlookUnknown, out)

	out, _ = AssessOutlook(&domain.TemporalTrajectory{Points: []domain.TemporalPoint{{Year: 2030}}})
	assert.Equal(t, domain.OutlookUnknown, out)
}

func TestAssessOutlook_NegativeWatchInterpolatesDowngrade(t *testing.T) {
	traj := &domain.TemporalTrajectory{Points: []domain.TemporalPoint{
		{Year: 2030, DefaultProb: 0.02, Rating: domain.RatingAA},
		{Year: 2040, DefaultProb: 0.08, Rating: domain.RatingA},
		{Year: 2050, DefaultProb: 0.25, Rating: domain.RatingBB},
	}}

	out, year := AssessOutlook(traj)
	assert.Equal(t, domain.OutlookNegativeWatch, out)
	require.NotNil(t, year)

	// AA is lost at 5%: 2030 + (0.05-0.02)/(0.08-0.02)*10 = 2035.
	assert.InDelta(t, 2035.0, *year, 1e-9)
}

func TestStrandedYear(t *testing.T) {
	pts := []domain.TemporalPoint{
		{Year: 2030, NPVUSD: 600},
		{Year: 2040, NPVUSD: 200},
		{Year: 2050, NPVUSD: -200},
	}
	y := strandedYear(pts)
	require.NotNil(t, y)
	// Crossing between 2040 and 2050: 2040 + 200/400*10 = 2045.
	assert.InDelta(t, 2045.0, *y, 1e-9)

	assert.Nil(t, strandedYear([]domain.TemporalPoint{{Year: 2030, NPVUSD: 10}, {Year: 2050, NPVUSD: 5}}))

	under := strandedYear([]domain.TemporalPoint{{Year: 2030, NPVUSD: -5}})
	require.NotNil(t, under)
	assert.Equal(t, 2030.0, *under)
}

type calmHazards struct{}

func (calmHazards) Sample(_ context.Context, _, _ float64) (domain.HazardSample, error) {
	return domain.HazardSample{
		Weather: domain.WeatherSample{MaxTempC: 26, TotalRainMM: 900, Provenance: domain.ProvenanceUpstream},
		Terrain: domain.TerrainSample{SoilPH: 6.5, SlopePct: 2, ElevationM: 5, Provenance: domain.ProvenanceUpstream},
		Coastal: domain.CoastalSample{MaxWaveHeightM: 2, BeachSlope: 0.08, Provenance: domain.ProvenanceUpstream},
		Monthly: domain.MonthlySample{Provenance: domain.ProvenanceUpstream},
	}, nil
}

func TestSweeper_TrajectoryYearsAscend(t *testing.T) {
	cat, err := catalog.Load("", "")
	require.NoError(t, err)
	r := runner.New(calmHazards{}, nil, cat, config.FinancialDefaults{}, zerolog.Nop())
	sw := NewSweeper(r, zerolog.Nop())

	asset := &domain.Asset{
		ID: "farm", Kind: domain.ProjectAgriculture, Crop: "maize",
		Location: domain.Point{Lat: 6.5, Lon: 3.4},
	}
	target := domain.Scenario{Year: 2050, TempDeltaC: 2.5, GlobalWarmingC: 2.5, RainPctChange: -0.2}

	sample, err := calmHazards{}.Sample(context.Background(), 0, 0)
	require.NoError(t, err)

	traj, err := sw.Trajectory(context.Background(), asset, target, sample, 11)
	require.NoError(t, err)

	require.Len(t, traj.Points, 3)
	assert.Equal(t, []int{2030, 2040, 2050}, []int{traj.Points[0].Year, traj.Points[1].Year, traj.Points[2].Year})

	// The scaled 2030 scenario carries less warming than 2050, so the early
	// sample cannot be riskier than the late one by construction of the
	// deterministic pipeline.
	assert.LessOrEqual(t, traj.Points[0].DefaultProb, traj.Points[2].DefaultProb+0.25)
}
