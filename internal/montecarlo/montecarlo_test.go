package montecarlo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasclimate/atlas/internal/domain"
)

func TestNPVUncertainty_Deterministic(t *testing.T) {
	eval := func(p Perturbation) float64 {
		return 1000 - 400*p.TempDeltaC + 2000*p.RainPctChange
	}
	dist := DriversFor(domain.ProjectAgriculture)

	a := NPVUncertainty(context.Background(), eval, dist, 2000, 42)
	b := NPVUncertainty(context.Background(), eval, dist, 2000, 42)

	assert.Equal(t, a, b, "same seed must reproduce bit-identical aggregates")

	c := NPVUncertainty(context.Background(), eval, dist, 2000, 43)
	assert.NotEqual(t, a.MeanNPV, c.MeanNPV, "different seeds draw different trials")
}

func TestNPVUncertainty_DefaultProbMonotoneInSigma(t *testing.T) {
	// Holding the mean fixed, wider driver noise cannot lower the
	// probability of a negative NPV.
	eval := func(p Perturbation) float64 { return 500 + 1000*p.TempDeltaC }

	prev := -1.0
	for _, sigma := range []float64{0.1, 0.5, 1.0, 2.0, 4.0} {
		res := NPVUncertainty(context.Background(), eval, DriverDist{TempSigmaC: sigma}, 4000, 7)
		assert.GreaterOrEqual(t, res.DefaultProbability+1e-9, prev, "sigma %v", sigma)
		prev = res.DefaultProbability
	}
}

func TestNPVUncertainty_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	eval := func(p Perturbation) float64 {
		calls++
		if calls == 100 {
			cancel()
		}
		time.Sleep(time.Microsecond)
		return 1.0
	}

	res := NPVUncertainty(ctx, eval, DriverDist{TempSigmaC: 1}, 100_000, 1)
	assert.True(t, res.Incomplete)
	assert.Less(t, res.Trials, 100_000)
	assert.Greater(t, res.Trials, 0, "partial aggregates are returned")
}

func TestConfidenceTier(t *testing.T) {
	tests := []struct {
		name  string
		mean  float64
		stdev float64
		want  domain.ConfidenceTier
	}{
		{"tight", 100, 10, domain.ConfidenceHigh},
		{"moderate", 100, 30, domain.ConfidenceMedium},
		{"wide", 100, 80, domain.ConfidenceLow},
		{"negative mean", -100, 1, domain.ConfidenceLow},
		{"zero mean", 0, 5, domain.ConfidenceLow},
		{"degenerate positive", 100, 0, domain.ConfidenceHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfidenceTier(tt.mean, tt.stdev))
		})
	}
}

func TestAggregate_Empty(t *testing.T) {
	res := Aggregate(nil, true)
	assert.True(t, res.Incomplete)
	assert.Equal(t, domain.ConfidenceLow, res.Confidence)
	assert.Zero(t, res.Trials)
}

func TestSimulateDamage_ExpectedLoss(t *testing.T) {
	// 5M asset, 2% mean damage, 5% volatility, 10k trials: expected loss
	// near 100k. Flooring at zero biases the mean upward slightly, so the
	// tolerance is generous (±3 sigma of the sample mean plus floor bias).
	res, err := SimulateDamage(context.Background(), DamageSimParams{
		AssetValueUSD: 5_000_000,
		MeanDamagePct: 0.02,
		VolatilityPct: 0.05,
		Simulations:   10_000,
		Seed:          99,
	})
	require.NoError(t, err)

	assert.InDelta(t, 100_000, res.ExpectedLossUSD, 30_000)
	assert.Greater(t, res.CVaR95USD, res.ExpectedLossUSD)
	assert.GreaterOrEqual(t, res.VaR99USD, res.VaR95USD)
	assert.Equal(t, 10_000, res.Trials)

	// Histogram: 40 bins whose counts sum to the trial count.
	require.Len(t, res.Histogram.Counts, HistogramBins)
	require.Len(t, res.Histogram.BinEdgesUSD, HistogramBins+1)
	total := 0
	for _, c := range res.Histogram.Counts {
		total += c
	}
	assert.Equal(t, 10_000, total)
}

func TestSimulateDamage_Validation(t *testing.T) {
	_, err := SimulateDamage(context.Background(), DamageSimParams{
		AssetValueUSD: -1, MeanDamagePct: 0.02, VolatilityPct: 0.05, Simulations: 1000,
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))

	_, err = SimulateDamage(context.Background(), DamageSimParams{
		AssetValueUSD: 100, MeanDamagePct: 0.02, VolatilityPct: 0.05, Simulations: 5,
	})
	require.Error(t, err)
}

func TestSimulateDamage_ZeroVolatility(t *testing.T) {
	res, err := SimulateDamage(context.Background(), DamageSimParams{
		AssetValueUSD: 1_000_000,
		MeanDamagePct: 0.03,
		VolatilityPct: 0,
		Simulations:   1000,
		Seed:          1,
	})
	require.NoError(t, err)
	assert.InDelta(t, 30_000, res.ExpectedLossUSD, 1e-9)
	assert.False(t, math.IsNaN(res.CVaR95USD))
}
