// Package rating grades simulated assets: a credit band from Monte-Carlo
// default probability, peer ranking within each project-type sector, and an
// outlook derived from the 2030/2040/2050 temporal sweep.
package rating

import (
	"sort"

	"github.com/atlasclimate/atlas/internal/domain"
)

// Credit bands on default probability in percent: the upper bound of each
// band, best first.
var bands = []struct {
	upperPct float64
	rating   domain.CreditRating
}{
	{1, domain.RatingAAA},
	{5, domain.RatingAA},
	{10, domain.RatingA},
	{20, domain.RatingBBB},
	{30, domain.RatingBB},
	{50, domain.RatingB},
	{101, domain.RatingC},
}

// FromDefaultProbability maps a default probability (fraction) to a band.
func FromDefaultProbability(p float64) domain.CreditRating {
	pct := p * 100
	for _, b := range bands {
		if pct < b.upperPct {
			return b.rating
		}
	}
	return domain.RatingC
}

// Index is the ordinal position of a rating, 0 = AAA. Unknown ratings sort
// worst.
func Index(r domain.CreditRating) int {
	for i, b := range bands {
		if b.rating == r {
			return i
		}
	}
	return len(bands)
}

// InvestmentGrade reports whether the rating is BBB or better.
func InvestmentGrade(r domain.CreditRating) bool {
	return Index(r) <= Index(domain.RatingBBB)
}

// bandUpperPct returns the default-probability percent at which the given
// rating is lost.
func bandUpperPct(r domain.CreditRating) float64 {
	return bands[Index(r)].upperPct
}

// Composite percentile weights.
const (
	weightNPV  = 0.4
	weightROI  = 0.3
	weightRisk = 0.3
)

// RateBatch decorates each report with its credit grade and sector ranking.
// The slice order mirrors the input. Trajectories are attached separately by
// the sweep.
func RateBatch(reports []*domain.Report) []domain.RatedAsset {
	rated := make([]domain.RatedAsset, len(reports))

	bySector := make(map[domain.ProjectKind][]int)
	for i, rep := range reports {
		bySector[rep.Kind] = append(bySector[rep.Kind], i)
	}

	for sector, idxs := range bySector {
		stats := sectorStats(sector, reports, idxs)
		for _, i := range idxs {
			rep := reports[i]
			rating := FromDefaultProbability(rep.MonteCarlo.DefaultProbability)

			npvPct := percentile(idxs, i, func(a, b *domain.Report) bool { return a.Financial.NPVUSD > b.Financial.NPVUSD }, reports)
			roiPct := percentile(idxs, i, func(a, b *domain.Report) bool { return a.ROI() > b.ROI() }, reports)
			riskPct := percentile(idxs, i, func(a, b *domain.Report) bool {
				return a.MonteCarlo.DefaultProbability < b.MonteCarlo.DefaultProbability
			}, reports)

			rated[i] = domain.RatedAsset{
				Report:              rep,
				Rating:              rating,
				InvestmentGrade:     InvestmentGrade(rating),
				SectorRankByNPV:     rank(idxs, i, func(a, b *domain.Report) bool { return a.Financial.NPVUSD > b.Financial.NPVUSD }, reports),
				SectorRankByROI:     rank(idxs, i, func(a, b *domain.Report) bool { return a.ROI() > b.ROI() }, reports),
				NPVPercentile:       npvPct,
				ROIPercentile:       roiPct,
				RiskPercentile:      riskPct,
				CompositePercentile: weightNPV*npvPct + weightROI*roiPct + weightRisk*riskPct,
				SectorStats:         stats,
			}
		}
	}
	return rated
}

// rank is 1-based position under the better-than predicate.
func rank(idxs []int, self int, better func(a, b *domain.Report) bool, reports []*domain.Report) int {
	r := 1
	for _, j := range idxs {
		if j != self && better(reports[j], reports[self]) {
			r++
		}
	}
	return r
}

// percentile is the share of sector peers the asset beats, in [0, 100]. A
// lone asset sits at 100.
func percentile(idxs []int, self int, better func(a, b *domain.Report) bool, reports []*domain.Report) float64 {
	if len(idxs) == 1 {
		return 100
	}
	beaten := 0
	for _, j := range idxs {
		if j != self && better(reports[self], reports[j]) {
			beaten++
		}
	}
	return 100 * float64(beaten) / float64(len(idxs)-1)
}

func sectorStats(sector domain.ProjectKind, reports []*domain.Report, idxs []int) domain.SectorStats {
	npvs := make([]float64, 0, len(idxs))
	sum := 0.0
	for _, i := range idxs {
		npvs = append(npvs, reports[i].Financial.NPVUSD)
		sum += reports[i].Financial.NPVUSD
	}
	sort.Float64s(npvs)

	median := 0.0
	n := len(npvs)
	if n > 0 {
		if n%2 == 1 {
			median = npvs[n/2]
		} else {
			median = (npvs[n/2-1] + npvs[n/2]) / 2
		}
	}
	return domain.SectorStats{
		Sector:    sector,
		Count:     n,
		MeanNPV:   sum / float64(n),
		MedianNPV: median,
	}
}
