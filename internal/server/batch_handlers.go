package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/orchestrator"
	"github.com/atlasclimate/atlas/internal/portfolio"
	"github.com/atlasclimate/atlas/internal/rating"
)

// batchRequest is the JSON form of a batch run. CSV uploads arrive as
// multipart form data instead and use the scenario defaults from config,
// adjusted by any scenario columns the upload carries.
type batchRequest struct {
	Assets   []*domain.Asset `json:"assets"`
	Scenario domain.Scenario `json:"scenario"`
	Seed     uint64          `json:"seed,omitempty"`
}

// assetSlot is one entry of the per-asset status array.
type assetSlot struct {
	Index   int                `json:"index"`
	AssetID string             `json:"asset_id"`
	Status  string             `json:"status"`
	Code    string             `json:"code,omitempty"`
	Message string             `json:"message,omitempty"`
	Result  *domain.RatedAsset `json:"result,omitempty"`
}

// batchResponse is the full batch report.
type batchResponse struct {
	PortfolioSummary domain.PortfolioReport      `json:"portfolio_summary"`
	AssetResults     []assetSlot                 `json:"asset_results"`
	Correlations     []portfolio.CorrelatedAsset `json:"correlations,omitempty"`
	Volatility       float64                     `json:"volatility"`
	VolatilityBand   string                      `json:"volatility_band"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	assets, sc, seed, err := s.decodeBatch(r)
	if err != nil {
		respondError(w, err)
		return
	}

	results, err := s.deps.Orchestrator.RunBatch(r.Context(), assets, sc, seed)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := s.assembleBatch(r, results, sc, seed)

	// Per-asset failures carry their own codes in the status array.
	if resp.PortfolioSummary.Failed > 0 {
		respondPartial(w, "",
			fmt.Sprintf("%d of %d assets failed", resp.PortfolioSummary.Failed, len(results)), resp)
		return
	}
	respondSuccess(w, resp)
}

// decodeBatch accepts either a JSON body or a multipart CSV upload under the
// "file" field.
func (s *Server) decodeBatch(r *http.Request) ([]*domain.Asset, domain.Scenario, uint64, error) {
	sc := domain.Scenario{
		Year:             s.deps.Config.ScenarioYear,
		SLRProjectionM:   s.deps.Config.SLRProjectionM,
		RainIntensityPct: s.deps.Config.RainIntensityPct,
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			return nil, sc, 0, domain.Invalidf("malformed multipart body: %v", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, sc, 0, domain.Invalid("multipart upload requires a \"file\" field")
		}
		defer file.Close()

		assets, override, err := orchestrator.ParsePortfolioCSV(file, domain.ProjectAgriculture)
		if err != nil {
			return nil, sc, 0, err
		}
		return assets, override.Apply(sc), 0, nil
	}

	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, sc, 0, err
	}
	if req.Scenario != (domain.Scenario{}) {
		sc = req.Scenario
		if sc.Year == 0 {
			sc.Year = s.deps.Config.ScenarioYear
		}
	}
	return req.Assets, sc, req.Seed, nil
}

// assembleBatch rates the successful reports, sweeps their temporal
// trajectories, and reduces the book-level numbers.
func (s *Server) assembleBatch(r *http.Request, results []orchestrator.Result, sc domain.Scenario, seed uint64) batchResponse {
	var reports []*domain.Report
	reportSlot := make(map[int]int) // result index -> reports index
	for _, res := range results {
		if res.Err == nil {
			reportSlot[res.Index] = len(reports)
			reports = append(reports, res.Report)
			s.saveRun(r, res.Report)
		}
	}

	rated := rating.RateBatch(reports)
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		ra := &rated[reportSlot[res.Index]]
		s.attachTrajectory(r, ra, res.Asset, sc, seed)
	}

	slots := make([]assetSlot, len(results))
	for i, res := range results {
		slot := assetSlot{Index: res.Index, AssetID: res.Asset.ID, Status: res.Status()}
		if res.Err != nil {
			slot.Code = string(domain.KindOf(res.Err))
			slot.Message = res.Err.Error()
		} else {
			slot.Result = &rated[reportSlot[res.Index]]
		}
		slots[i] = slot
	}

	vol := portfolio.Volatility(reports, seed)
	return batchResponse{
		PortfolioSummary: portfolio.Summarize(results),
		AssetResults:     slots,
		Correlations:     portfolio.Correlations(rated),
		Volatility:       vol,
		VolatilityBand:   portfolio.RiskBand(vol),
	}
}

// attachTrajectory runs the temporal sweep for one rated asset. Sweep
// failures leave the outlook Unknown rather than failing the batch.
func (s *Server) attachTrajectory(r *http.Request, ra *domain.RatedAsset, asset *domain.Asset, sc domain.Scenario, seed uint64) {
	sample, err := s.deps.Hazards.Sample(r.Context(), asset.Location.Lat, asset.Location.Lon)
	if err != nil {
		ra.Outlook = domain.OutlookUnknown
		return
	}
	traj, err := s.deps.Sweeper.Trajectory(r.Context(), asset, sc, sample, seed)
	if err != nil {
		s.log.Warn().Err(err).Str("asset", asset.ID).Msg("temporal sweep failed")
		ra.Outlook = domain.OutlookUnknown
		return
	}
	ra.Trajectory = traj
	ra.Outlook, ra.ProjectedDowngradeYear = rating.AssessOutlook(traj)
}
