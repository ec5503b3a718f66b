package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atlasclimate/atlas/internal/domain"
)

// coordParams extracts and validates the lat/lon query parameters.
func coordParams(r *http.Request) (lat, lon float64, err error) {
	lat, err = strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		return 0, 0, domain.Invalid("lat query parameter must be a number")
	}
	lon, err = strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		return 0, 0, domain.Invalid("lon query parameter must be a number")
	}
	return lat, lon, nil
}

func (s *Server) handleHazard(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := coordParams(r)
	if err != nil {
		respondError(w, err)
		return
	}

	sample, err := s.deps.Hazards.Sample(r.Context(), lat, lon)
	if err != nil {
		respondError(w, err)
		return
	}

	if sample.Degraded() {
		respondPartial(w, string(domain.KindUpstreamDegraded),
			"hazard data served from fallback sources", sample)
		return
	}
	respondSuccess(w, sample)
}

func (s *Server) handleVegetation(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := coordParams(r)
	if err != nil {
		respondError(w, err)
		return
	}

	report, err := s.deps.Hazards.Vegetation(r.Context(), lat, lon)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, report)
}

func (s *Server) handleCrops(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, map[string]any{"crops": s.deps.Catalog.CropNames()})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Repo == nil {
		respondError(w, domain.Internal("run history is not configured", nil))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.deps.Repo.List(r.Context(), r.URL.Query().Get("asset_id"), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, map[string]any{"runs": records, "count": len(records)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Repo == nil {
		respondError(w, domain.Internal("run history is not configured", nil))
		return
	}

	record, err := s.deps.Repo.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		// An unknown run id answers 404, not 400.
		if domain.KindOf(err) == domain.KindInvalidInput {
			writeJSON(w, http.StatusNotFound, envelope{
				Status: "error", Code: string(domain.KindInvalidInput), Message: "run not found",
			})
			return
		}
		respondError(w, err)
		return
	}
	respondSuccess(w, record)
}
