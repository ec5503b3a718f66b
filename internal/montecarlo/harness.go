// Package montecarlo provides the stochastic harnesses: driver-perturbation
// NPV uncertainty for the rating layer, and the annual-damage CVaR
// simulation. All sampling is seeded; identical seeds reproduce identical
// aggregates bit for bit.
package montecarlo

import (
	"context"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/atlasclimate/atlas/internal/domain"
)

// The harness yields to the cancellation token every checkpointEvery trials.
const checkpointEvery = 64

// Confidence-tier thresholds on the coefficient of variation.
const (
	cvHighLimit   = 0.2
	cvMediumLimit = 0.5
)

// Perturbation is one draw of the scenario drivers.
type Perturbation struct {
	TempDeltaC        float64
	RainPctChange     float64
	SLRDeltaM         float64
	IntensityDeltaPct float64
}

// DriverDist parameterizes the per-trial driver noise. Sigmas are standard
// deviations in the driver's own unit (degrees, fraction, metres).
type DriverDist struct {
	TempSigmaC        float64
	RainSigmaPct      float64
	SLRSigmaM         float64
	IntensitySigmaPct float64
}

// DriversFor returns the perturbation distribution for a project kind. Crop
// assets see mostly temperature and rainfall noise; coastal assets see wave
// and sea-level noise; flood assets see intensity noise.
func DriversFor(kind domain.ProjectKind) DriverDist {
	switch kind {
	case domain.ProjectAgriculture:
		return DriverDist{TempSigmaC: 0.8, RainSigmaPct: 0.12, SLRSigmaM: 0, IntensitySigmaPct: 0}
	case domain.ProjectCoastal:
		return DriverDist{TempSigmaC: 0.3, RainSigmaPct: 0.05, SLRSigmaM: 0.15, IntensitySigmaPct: 0}
	case domain.ProjectUrbanFlood, domain.ProjectFlashFlood:
		return DriverDist{TempSigmaC: 0.3, RainSigmaPct: 0.08, SLRSigmaM: 0, IntensitySigmaPct: 0.10}
	case domain.ProjectHealth:
		return DriverDist{TempSigmaC: 0.9, RainSigmaPct: 0.10, SLRSigmaM: 0, IntensitySigmaPct: 0}
	default:
		return DriverDist{TempSigmaC: 0.5, RainSigmaPct: 0.10}
	}
}

// NPVUncertainty perturbs the scenario drivers trials times, re-evaluating
// the deterministic pipeline via eval, and aggregates the NPV distribution.
// On cancellation it returns the aggregates over the trials completed so
// far, flagged incomplete.
func NPVUncertainty(ctx context.Context, eval func(Perturbation) float64, dist DriverDist, trials int, seed uint64) domain.MonteCarloResult {
	if trials <= 0 {
		trials = 500
	}

	src := rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)
	temp := distuv.Normal{Mu: 0, Sigma: nonZero(dist.TempSigmaC), Src: src}
	rain := distuv.Normal{Mu: 0, Sigma: nonZero(dist.RainSigmaPct), Src: src}
	slr := distuv.Normal{Mu: 0, Sigma: nonZero(dist.SLRSigmaM), Src: src}
	intensity := distuv.Normal{Mu: 0, Sigma: nonZero(dist.IntensitySigmaPct), Src: src}

	npvs := make([]float64, 0, trials)
	incomplete := false

	for i := 0; i < trials; i++ {
		if i%checkpointEvery == 0 && ctx.Err() != nil {
			incomplete = true
			break
		}

		p := Perturbation{}
		if dist.TempSigmaC > 0 {
			p.TempDeltaC = temp.Rand()
		}
		if dist.RainSigmaPct > 0 {
			p.RainPctChange = rain.Rand()
		}
		if dist.SLRSigmaM > 0 {
			p.SLRDeltaM = slr.Rand()
		}
		if dist.IntensitySigmaPct > 0 {
			p.IntensityDeltaPct = intensity.Rand()
		}

		npvs = append(npvs, eval(p))
	}

	return Aggregate(npvs, incomplete)
}

// Aggregate reduces an NPV sample into the Monte-Carlo result record.
func Aggregate(npvs []float64, incomplete bool) domain.MonteCarloResult {
	if len(npvs) == 0 {
		return domain.MonteCarloResult{Confidence: domain.ConfidenceLow, Incomplete: incomplete}
	}

	mean := stat.Mean(npvs, nil)
	stdev := 0.0
	if len(npvs) > 1 {
		stdev = stat.StdDev(npvs, nil)
	}

	sorted := make([]float64, len(npvs))
	copy(sorted, npvs)
	sort.Float64s(sorted)

	defaults := 0
	for _, v := range npvs {
		if v < 0 {
			defaults++
		}
	}

	return domain.MonteCarloResult{
		MeanNPV:            mean,
		StdevNPV:           stdev,
		VaR95:              stat.Quantile(0.05, stat.Empirical, sorted, nil),
		VaR99:              stat.Quantile(0.01, stat.Empirical, sorted, nil),
		DefaultProbability: float64(defaults) / float64(len(npvs)),
		Confidence:         ConfidenceTier(mean, stdev),
		Trials:             len(npvs),
		Incomplete:         incomplete,
	}
}

// ConfidenceTier grades dispersion against the mean: High when the
// coefficient of variation is under 0.2, Medium under 0.5, otherwise Low.
// Non-positive means are Low regardless; a degenerate positive-mean sample
// (stdev zero) is High.
func ConfidenceTier(mean, stdev float64) domain.ConfidenceTier {
	if mean <= 0 {
		return domain.ConfidenceLow
	}
	if stdev == 0 {
		return domain.ConfidenceHigh
	}
	cv := stdev / mean
	switch {
	case cv < cvHighLimit:
		return domain.ConfidenceHigh
	case cv < cvMediumLimit:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func nonZero(sigma float64) float64 {
	if sigma <= 0 {
		return 1 // distuv.Normal panics on Sigma<=0; unused when gated off
	}
	return sigma
}
