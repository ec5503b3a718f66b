package rating

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/runner"
)

// Temporal sweep sample years. Scenario magnitudes interpolate linearly
// from the base year toward their targets at the horizon.
var sweepYears = []int{2030, 2040, 2050}

const (
	sweepBaseYear    = 2024
	sweepHorizonYear = 2050
)

// Sweeper produces temporal trajectories by re-running the pipeline under
// progressively scaled scenarios.
type Sweeper struct {
	log    zerolog.Logger
	runner *runner.Runner
}

// NewSweeper builds a sweeper over the given runner.
func NewSweeper(r *runner.Runner, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		log:    log.With().Str("component", "sweep").Logger(),
		runner: r,
	}
}

// Trajectory samples the asset at each sweep year under the target scenario
// scaled to that year. The hazard sample is fetched once and reused so the
// sweep isolates the climate signal.
func (s *Sweeper) Trajectory(ctx context.Context, asset *domain.Asset, target domain.Scenario, sample domain.HazardSample, seed uint64) (*domain.TemporalTrajectory, error) {
	traj := &domain.TemporalTrajectory{Points: make([]domain.TemporalPoint, 0, len(sweepYears))}

	for _, year := range sweepYears {
		sc := target.ScaledTo(year, sweepBaseYear, sweepHorizonYear)
		rep, err := s.runner.RunWithSample(ctx, asset, sc, sample, seed)
		if err != nil {
			return nil, err
		}
		traj.Points = append(traj.Points, domain.TemporalPoint{
			Year:        year,
			NPVUSD:      rep.Financial.NPVUSD,
			DefaultProb: rep.MonteCarlo.DefaultProbability,
			Rating:      FromDefaultProbability(rep.MonteCarlo.DefaultProbability),
		})
	}

	traj.StrandedAssetYear = strandedYear(traj.Points)
	return traj, nil
}

// AssessOutlook compares the first and last sweep ratings. A worse 2050
// grade is a Negative Watch with the interpolated downgrade year; a better
// one is Positive; equal is Stable. Anything short of two samples is
// Unknown.
func AssessOutlook(traj *domain.TemporalTrajectory) (domain.Outlook, *float64) {
	if traj == nil || len(traj.Points) < 2 {
		return domain.OutlookUnknown, nil
	}

	first := traj.Points[0]
	last := traj.Points[len(traj.Points)-1]

	switch {
	case Index(last.Rating) > Index(first.Rating):
		return domain.OutlookNegativeWatch, downgradeYear(traj.Points)
	case Index(last.Rating) < Index(first.Rating):
		return domain.OutlookPositive, nil
	default:
		return domain.OutlookStable, nil
	}
}

// downgradeYear interpolates the year default probability crosses out of
// the earlier band, within the first adjacent pair whose rating worsens.
func downgradeYear(points []domain.TemporalPoint) *float64 {
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		if Index(b.Rating) <= Index(a.Rating) {
			continue
		}

		threshold := bandUpperPct(a.Rating) / 100
		year := float64(a.Year)
		if b.DefaultProb > a.DefaultProb {
			f := (threshold - a.DefaultProb) / (b.DefaultProb - a.DefaultProb)
			if f < 0 {
				f = 0
			}
			if f > 1 {
				f = 1
			}
			year = float64(a.Year) + f*float64(b.Year-a.Year)
		}
		return &year
	}
	return nil
}

// strandedYear interpolates the first year NPV crosses below zero. Years
// are strictly increasing; an asset that starts under water is stranded at
// the first sample year.
func strandedYear(points []domain.TemporalPoint) *float64 {
	if len(points) == 0 {
		return nil
	}
	if points[0].NPVUSD < 0 {
		y := float64(points[0].Year)
		return &y
	}
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		if b.NPVUSD >= 0 {
			continue
		}
		f := a.NPVUSD / (a.NPVUSD - b.NPVUSD)
		y := float64(a.Year) + f*float64(b.Year-a.Year)
		return &y
	}
	return nil
}
