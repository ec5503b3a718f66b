package server

import (
	"net/http"

	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/rating"
)

// simulateRequest is the single-asset run request. A zero seed lets the
// runner derive one from the asset's coordinate.
type simulateRequest struct {
	Asset    domain.Asset    `json:"asset"`
	Scenario domain.Scenario `json:"scenario"`
	Seed     uint64          `json:"seed,omitempty"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Scenario.Year == 0 {
		req.Scenario.Year = s.deps.Config.ScenarioYear
	}

	report, err := s.deps.Runner.Run(r.Context(), &req.Asset, req.Scenario, req.Seed)
	if err != nil {
		respondError(w, err)
		return
	}
	s.saveRun(r, report)

	if report.Degraded {
		respondPartial(w, string(domain.KindUpstreamDegraded),
			"hazard data served from fallback sources", report)
		return
	}
	respondSuccess(w, report)
}

// outlookResponse decorates the base report with the temporal sweep.
type outlookResponse struct {
	Report                 *domain.Report             `json:"report"`
	Rating                 domain.CreditRating        `json:"credit_rating"`
	InvestmentGrade        bool                       `json:"investment_grade"`
	Outlook                domain.Outlook             `json:"outlook"`
	ProjectedDowngradeYear *float64                   `json:"projected_downgrade_year,omitempty"`
	Trajectory             *domain.TemporalTrajectory `json:"trajectory"`
}

func (s *Server) handleOutlook(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Scenario.Year == 0 {
		req.Scenario.Year = s.deps.Config.ScenarioYear
	}

	sample, err := s.deps.Hazards.Sample(r.Context(), req.Asset.Location.Lat, req.Asset.Location.Lon)
	if err != nil {
		respondError(w, err)
		return
	}

	report, err := s.deps.Runner.RunWithSample(r.Context(), &req.Asset, req.Scenario, sample, req.Seed)
	if err != nil {
		respondError(w, err)
		return
	}
	s.saveRun(r, report)

	traj, err := s.deps.Sweeper.Trajectory(r.Context(), &req.Asset, req.Scenario, sample, req.Seed)
	if err != nil {
		respondError(w, err)
		return
	}
	outlook, downgradeYear := rating.AssessOutlook(traj)

	grade := rating.FromDefaultProbability(report.MonteCarlo.DefaultProbability)
	resp := outlookResponse{
		Report:                 report,
		Rating:                 grade,
		InvestmentGrade:        rating.InvestmentGrade(grade),
		Outlook:                outlook,
		ProjectedDowngradeYear: downgradeYear,
		Trajectory:             traj,
	}

	if report.Degraded {
		respondPartial(w, string(domain.KindUpstreamDegraded),
			"hazard data served from fallback sources", resp)
		return
	}
	respondSuccess(w, resp)
}

// saveRun records the report in the run history. Persistence failures are
// logged; the simulation already succeeded.
func (s *Server) saveRun(r *http.Request, report *domain.Report) {
	if s.deps.Repo == nil {
		return
	}
	if err := s.deps.Repo.Save(r.Context(), report); err != nil {
		s.log.Error().Err(err).Str("run_id", report.RunID).Msg("run history write failed")
	}
}
