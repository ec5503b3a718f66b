package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasclimate/atlas/internal/catalog"
	"github.com/atlasclimate/atlas/internal/config"
	"github.com/atlasclimate/atlas/internal/database"
	"github.com/atlasclimate/atlas/internal/events"
	"github.com/atlasclimate/atlas/internal/hazard"
	"github.com/atlasclimate/atlas/internal/orchestrator"
	"github.com/atlasclimate/atlas/internal/rating"
	"github.com/atlasclimate/atlas/internal/runner"
	"github.com/atlasclimate/atlas/internal/runs"
	"github.com/atlasclimate/atlas/internal/telemetry"
)

// newTestServer wires the full stack over the parametric hazard fallback and
// an in-memory run history.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zerolog.Nop()

	db, err := database.New(database.Config{
		Path:    fmt.Sprintf("file:servertest_%s?mode=memory&cache=shared", t.Name()),
		Profile: database.ProfileStandard,
		Name:    "server-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := runs.NewRepository(db, log)
	require.NoError(t, err)

	cat := catalog.MustLoad()
	hazards := hazard.NewService(nil, nil, nil, log)
	run := runner.New(hazards, nil, cat, config.FinancialDefaults{}, log)
	bus := events.NewBus()
	metrics := telemetry.New()

	srv := New(Deps{
		Config:       &config.Config{ScenarioYear: 2050},
		Runner:       run,
		Orchestrator: orchestrator.New(run, bus, metrics, log),
		Sweeper:      rating.NewSweeper(run, log),
		Hazards:      hazards,
		Catalog:      cat,
		Repo:         repo,
		Bus:          bus,
		Metrics:      metrics,
	}, log)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, envelope) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func getJSON(t *testing.T, url string) (*http.Response, envelope) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func farmAsset(id string) map[string]any {
	return map[string]any{
		"id":           id,
		"project_type": "agriculture",
		"crop":         "maize",
		"location":     map[string]float64{"lat": -1.29, "lon": 36.82},
		"exposure":     map[string]any{"asset_value_usd": 50_000},
	}
}

func TestSimulate_FallbackIsPartial(t *testing.T) {
	ts := newTestServer(t)

	resp, env := postJSON(t, ts.URL+"/api/simulate", map[string]any{
		"asset":    farmAsset("farm-1"),
		"scenario": map[string]any{"year": 2050, "temp_delta_c": 1.0},
		"seed":     7,
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "partial", env.Status)
	assert.Equal(t, "UPSTREAM_DEGRADED", env.Code)

	data := env.Data.(map[string]any)
	assert.NotEmpty(t, data["run_id"])
	assert.Equal(t, "agriculture", data["project_type"])
}

func TestSimulate_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"unknown kind", map[string]any{
			"asset":    map[string]any{"id": "x", "project_type": "casino"},
			"scenario": map[string]any{"year": 2050},
		}},
		{"bad year", map[string]any{
			"asset":    farmAsset("farm-1"),
			"scenario": map[string]any{"year": 1999},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, env := postJSON(t, ts.URL+"/api/simulate", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, "INVALID_INPUT", env.Code)
		})
	}
}

func TestSimulate_RunIsPersisted(t *testing.T) {
	ts := newTestServer(t)

	_, env := postJSON(t, ts.URL+"/api/simulate", map[string]any{
		"asset":    farmAsset("farm-persist"),
		"scenario": map[string]any{"year": 2050},
	})
	runID := env.Data.(map[string]any)["run_id"].(string)

	resp, listEnv := getJSON(t, ts.URL+"/api/runs?asset_id=farm-persist")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), listEnv.Data.(map[string]any)["count"])

	resp, getEnv := getJSON(t, ts.URL+"/api/runs/"+runID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", getEnv.Status)
}

func TestGetRun_Missing404(t *testing.T) {
	ts := newTestServer(t)

	resp, env := getJSON(t, ts.URL+"/api/runs/not-a-run")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "error", env.Status)
}

func TestBatch_JSONBody(t *testing.T) {
	ts := newTestServer(t)

	resp, env := postJSON(t, ts.URL+"/api/simulate/batch", map[string]any{
		"assets": []any{farmAsset("farm-1"), farmAsset("farm-2")},
		"scenario": map[string]any{
			"year": 2050, "temp_delta_c": 1.0, "global_warming_c": 1.0,
		},
		"seed": 11,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, []string{"success", "partial"}, env.Status)

	data := env.Data.(map[string]any)
	summary := data["portfolio_summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["total_assets"])
	assert.Equal(t, float64(2), summary["successful"])

	slots := data["asset_results"].([]any)
	require.Len(t, slots, 2)
	first := slots[0].(map[string]any)
	assert.Equal(t, "success", first["status"])

	rated := first["result"].(map[string]any)
	assert.NotEmpty(t, rated["credit_rating"])
	assert.NotEmpty(t, rated["outlook"])
	require.NotNil(t, rated["trajectory"])
}

func TestBatch_CSVUpload(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "portfolio.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw,
		"name,latitude,longitude,value_usd,type,crop\n"+
			"Nyeri Farm,-0.42,36.95,25000,agriculture,maize\n")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/simulate/batch", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	summary := env.Data.(map[string]any)["portfolio_summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["total_assets"])
}

func TestBatch_CSVUploadScenarioColumns(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "portfolio.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw,
		"name,latitude,longitude,value_usd,type,crop,scenario_year,temp_delta,rain_pct_change\n"+
			"Nyeri Farm,-0.42,36.95,25000,agriculture,maize,2045,2.5,-30\n")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/simulate/batch", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The upload's scenario columns override the config defaults, with the
	// spreadsheet integer-percent rain spelling read as a fraction.
	slots := env.Data.(map[string]any)["asset_results"].([]any)
	require.Len(t, slots, 1)
	report := slots[0].(map[string]any)["result"].(map[string]any)["report"].(map[string]any)
	sc := report["scenario"].(map[string]any)

	assert.Equal(t, float64(2045), sc["year"])
	assert.Equal(t, 2.5, sc["temp_delta_c"])
	assert.Equal(t, 2.5, sc["global_warming_c"])
	assert.InDelta(t, -0.30, sc["rain_pct_change"].(float64), 1e-9)
}

func TestBatch_EmptyRejected(t *testing.T) {
	ts := newTestServer(t)

	resp, env := postJSON(t, ts.URL+"/api/simulate/batch", map[string]any{
		"assets": []any{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", env.Code)
}

func TestPriceShock_Endpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, env := postJSON(t, ts.URL+"/api/analytics/price-shock", map[string]any{
		"crop":                "maize",
		"baseline_yield_tons": 100,
		"stressed_yield_tons": 70,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", env.Status)

	data := env.Data.(map[string]any)
	// 30% loss / 0.25 elasticity = +120% on 180 USD/t.
	assert.InDelta(t, 396.0, data["shocked_price_usd_per_ton"].(float64), 1e-9)
	assert.Equal(t, "URGENT", data["recommendation"])
}

func TestDamageCVaR_Endpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, env := postJSON(t, ts.URL+"/api/analytics/damage-cvar", map[string]any{
		"asset_value_usd": 5_000_000,
		"mean_damage_pct": 0.02,
		"volatility_pct":  0.05,
		"num_simulations": 1000,
		"seed":            99,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", env.Status)

	data := env.Data.(map[string]any)
	assert.Greater(t, data["cvar_95_usd"].(float64), data["expected_loss_usd"].(float64))
	assert.Equal(t, float64(1000), data["trials"])
}

func TestDALY_Endpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, env := postJSON(t, ts.URL+"/api/analytics/daly", map[string]any{
		"wbgt":               29,
		"malaria_risk_score": 100,
		"population":         10_000,
		"gdp_per_capita_usd": 2_500,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", env.Status)
	assert.InDelta(t, 142.5, env.Data.(map[string]any)["baseline_dalys"].(float64), 1e-9)
}

func TestHazard_Endpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, env := getJSON(t, ts.URL+"/api/hazard?lat=-1.29&lon=36.82")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "partial", env.Status) // fallback-only wiring

	weather := env.Data.(map[string]any)["weather"].(map[string]any)
	assert.Equal(t, "fallback_climate_zone", weather["provenance"])

	resp, env = getJSON(t, ts.URL+"/api/hazard?lat=999&lon=0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", env.Code)
}

func TestVegetation_Endpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, env := getJSON(t, ts.URL+"/api/hazard/vegetation?lat=-1.29&lon=36.82")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", env.Status)

	data := env.Data.(map[string]any)
	assert.NotEmpty(t, data["raw"])
	assert.Contains(t, []string{"greening", "browning", "stable"}, data["trend"])
}

func TestCrops_Endpoint(t *testing.T) {
	ts := newTestServer(t)

	_, env := getJSON(t, ts.URL+"/api/catalog/crops")
	crops := env.Data.(map[string]any)["crops"].([]any)
	assert.Contains(t, crops, "maize")
}

func TestSystemStatus_Endpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, env := getJSON(t, ts.URL+"/api/system/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", env.Status)

	data := env.Data.(map[string]any)
	assert.Equal(t, "atlas", data["service"])
	assert.GreaterOrEqual(t, data["uptime_seconds"].(float64), 0.0)
}

func TestMetrics_Endpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCBA_Endpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, env := postJSON(t, ts.URL+"/api/analytics/cba", map[string]any{
		"years":                 10,
		"discount_rate":         0.08,
		"baseline_damage_usd":   100_000,
		"insurance_premium_usd": 20_000,
		"capex_usd":             300_000,
		"opex_usd":              10_000,
		"residual_damage_usd":   20_000,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", env.Status)

	data := env.Data.(map[string]any)
	series := data["series"].([]any)
	assert.Len(t, series, 11) // year 0 through year 10
	assert.NotNil(t, data["breakeven_year"])
}

func TestGreenBond_Endpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, env := postJSON(t, ts.URL+"/api/analytics/green-bond", map[string]any{
		"principal_usd": 1_000_000,
		"annual_rate":   0.08,
		"greenium_bps":  50,
		"term_years":    10,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", env.Status)
	assert.Greater(t, env.Data.(map[string]any)["annual_savings_usd"].(float64), 0.0)

	resp, env = postJSON(t, ts.URL+"/api/analytics/green-bond", map[string]any{
		"principal_usd": -5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", env.Code)
}
