// Package portfolio aggregates batch results into a book-level view:
// co-movement of each asset against the rest of the book, yield-resample
// volatility, and the portfolio summary report.
package portfolio

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/orchestrator"
)

// Correlation class cutoffs against the market vector.
const (
	hedgeCutoff        = 0.0
	concentratorCutoff = 0.8
)

// Volatility risk bands on the mean coefficient of variation.
const (
	volLowLimit    = 0.10
	volMediumLimit = 0.20
	volHighLimit   = 0.30
)

// Design-event frequency shared with the cash-flow annualization.
const annualEventProbability = 0.1

// yieldResampleYears is the resample depth behind the volatility estimate.
const yieldResampleYears = 10

// CorrelatedAsset pairs an asset with its market co-movement.
type CorrelatedAsset struct {
	AssetID     string                  `json:"asset_id"`
	Correlation float64                 `json:"correlation"`
	Class       domain.CorrelationClass `json:"class"`
}

// Classify maps a Pearson correlation to its class.
func Classify(corr float64) domain.CorrelationClass {
	switch {
	case corr < hedgeCutoff:
		return domain.CorrelationHedge
	case corr > concentratorCutoff:
		return domain.CorrelationConcentrator
	default:
		return domain.CorrelationNeutral
	}
}

// Correlations computes, for every asset with a temporal trajectory, the
// Pearson correlation of its NPV-over-year vector against the market vector
// (the mean of all other assets' vectors). Fewer than two trajectories
// yield no classifications.
func Correlations(rated []domain.RatedAsset) []CorrelatedAsset {
	type vec struct {
		id     string
		points []float64
	}

	var vecs []vec
	for _, ra := range rated {
		if ra.Trajectory == nil || len(ra.Trajectory.Points) < 2 {
			continue
		}
		v := vec{id: ra.Report.AssetID}
		for _, p := range ra.Trajectory.Points {
			v.points = append(v.points, p.NPVUSD)
		}
		vecs = append(vecs, v)
	}
	if len(vecs) < 2 {
		return nil
	}

	out := make([]CorrelatedAsset, 0, len(vecs))
	for i, v := range vecs {
		market := make([]float64, len(v.points))
		for j, other := range vecs {
			if j == i {
				continue
			}
			for k := range market {
				if k < len(other.points) {
					market[k] += other.points[k]
				}
			}
		}
		for k := range market {
			market[k] /= float64(len(vecs) - 1)
		}

		corr := stat.Correlation(v.points, market, nil)
		out = append(out, CorrelatedAsset{
			AssetID:     v.id,
			Correlation: corr,
			Class:       Classify(corr),
		})
	}
	return out
}

// Volatility estimates portfolio volatility as the mean coefficient of
// variation across seeded 10-year resilient-yield resamples, one series per
// agriculture location. Books without agriculture assets report zero.
func Volatility(reports []*domain.Report, seed uint64) float64 {
	src := rand.NewPCG(seed, seed^0xA5A5A5A5DEADBEEF)

	var cvs []float64
	for _, rep := range reports {
		if rep.Kind != domain.ProjectAgriculture || rep.Physics.ResilientYieldPct <= 0 {
			continue
		}

		// Interannual yield noise around the simulated resilient yield.
		noise := distuv.Normal{Mu: rep.Physics.ResilientYieldPct, Sigma: 5.0, Src: src}
		years := make([]float64, yieldResampleYears)
		for i := range years {
			y := noise.Rand()
			if y < 0 {
				y = 0
			}
			years[i] = y
		}

		mean := stat.Mean(years, nil)
		if mean > 0 {
			cvs = append(cvs, stat.StdDev(years, nil)/mean)
		}
	}
	if len(cvs) == 0 {
		return 0
	}
	return stat.Mean(cvs, nil)
}

// RiskBand maps a volatility fraction onto the presentation band.
func RiskBand(vol float64) string {
	switch {
	case vol < volLowLimit:
		return "Low"
	case vol < volMediumLimit:
		return "Medium"
	case vol < volHighLimit:
		return "High"
	default:
		return "Very High"
	}
}

// Summarize reduces a batch into the portfolio report.
func Summarize(results []orchestrator.Result) domain.PortfolioReport {
	report := domain.PortfolioReport{
		TotalAssets:      len(results),
		CropDistribution: make(map[string]int),
	}

	resilienceSum := 0.0
	for _, res := range results {
		if res.Err != nil {
			report.Failed++
			continue
		}
		report.Successful++

		rep := res.Report
		value := res.Asset.Exposure.AssetValueUSD
		report.TotalValueUSD += value
		report.TotalNPV += rep.Financial.NPVUSD

		atRisk := value * rep.Physics.DamagePct
		if rep.Spatial != nil {
			atRisk = rep.Spatial.ValueAtRiskUSD
		}
		report.TotalVaRUSD += atRisk
		report.TotalExpectedLoss += atRisk * annualEventProbability

		resilienceSum += 1 - rep.Physics.DamagePct
		if crop := res.Asset.Crop; crop != "" {
			report.CropDistribution[crop]++
		}
	}

	if report.Successful > 0 {
		report.AvgResilience = resilienceSum / float64(report.Successful)
	}
	if report.TotalValueUSD > 0 {
		report.RiskExposurePct = report.TotalVaRUSD / report.TotalValueUSD
	}
	return report
}
