// The atlas CLI runs the simulation kernels from the command line for
// scripting and backtest orchestration: single-asset scenario runs, commodity
// price shocks, and raw hazard lookups. Results are JSON on stdout; any
// failure exits nonzero.
package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/atlasclimate/atlas/internal/catalog"
	"github.com/atlasclimate/atlas/internal/config"
	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/hazard"
	"github.com/atlasclimate/atlas/internal/priceshock"
	"github.com/atlasclimate/atlas/internal/runner"
	"github.com/atlasclimate/atlas/internal/surrogate"
	"github.com/atlasclimate/atlas/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Failures keep the JSON contract: a structured envelope on stdout,
		// nonzero exit.
		_ = printJSON(errorEnvelope(err))
		os.Exit(1)
	}
}

func errorEnvelope(err error) map[string]any {
	return map[string]any{
		"status":  "error",
		"code":    string(domain.KindOf(err)),
		"message": err.Error(),
	}
}

// cliDeps is the minimal stack the CLI commands share: no databases, no
// scheduler, hazard cache skipped.
type cliDeps struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	hazards *hazard.Service
	runner  *runner.Runner
}

func buildDeps() (*cliDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New("error", false)

	var upstream hazard.Provider
	if cfg.HazardBaseURL != "" && !cfg.UseMockData {
		upstream = hazard.NewUpstream(cfg.HazardBaseURL,
			time.Duration(cfg.HazardTimeoutSec)*time.Second, log)
	}
	hazards := hazard.NewService(upstream, nil, nil, log)

	models := surrogate.NewRegistry(cfg.ModelDir, log)
	models.Load()

	cat := catalog.MustLoad()
	return &cliDeps{
		cfg:     cfg,
		catalog: cat,
		hazards: hazards,
		runner:  runner.New(hazards, models, cat, cfg.Financial, log),
	}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "atlas",
		Short:         "Climate-resilience risk simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSimulateCmd(), newPriceShockCmd(), newHazardCmd())
	return root
}

func newSimulateCmd() *cobra.Command {
	var (
		lat, lon      float64
		value         float64
		tempDelta     float64
		rainPct       float64
		slr           float64
		intensityPct  float64
		year          int
		seed          uint64
		crop, project string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one asset through the scenario pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := buildDeps()
			if err != nil {
				return err
			}
			if year == 0 {
				year = deps.cfg.ScenarioYear
			}

			asset := &domain.Asset{
				ID:       "cli",
				Kind:     domain.ProjectKind(project),
				Location: domain.Point{Lat: lat, Lon: lon},
				Crop:     crop,
				Exposure: domain.Exposure{AssetValueUSD: value},
			}
			sc := domain.Scenario{
				Year:             year,
				TempDeltaC:       tempDelta,
				RainPctChange:    rainPct,
				SLRProjectionM:   slr,
				RainIntensityPct: intensityPct,
				GlobalWarmingC:   tempDelta,
			}

			report, err := deps.runner.Run(cmd.Context(), asset, sc, seed)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	cmd.Flags().Float64Var(&value, "value", 0, "asset value in USD")
	cmd.Flags().Float64Var(&tempDelta, "temp-delta", 0, "warming delta in degrees C")
	cmd.Flags().Float64Var(&rainPct, "rain-change", 0, "rainfall change as a fraction")
	cmd.Flags().Float64Var(&slr, "slr", 0, "sea-level-rise projection in meters")
	cmd.Flags().Float64Var(&intensityPct, "rain-intensity", 0, "storm intensity uplift as a fraction")
	cmd.Flags().IntVar(&year, "year", 0, "scenario year (defaults to config)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 derives from location)")
	cmd.Flags().StringVar(&crop, "crop", "", "crop name for agriculture assets")
	cmd.Flags().StringVar(&project, "project", "agriculture", "project type")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func newPriceShockCmd() *cobra.Command {
	var (
		crop               string
		baseline, stressed float64
	)

	cmd := &cobra.Command{
		Use:   "price-shock",
		Short: "Convert a yield loss into a commodity price response",
		RunE: func(_ *cobra.Command, _ []string) error {
			deps, err := buildDeps()
			if err != nil {
				return err
			}
			res, err := priceshock.Compute(deps.catalog, priceshock.Input{
				Crop:           crop,
				BaselineYieldT: baseline,
				StressedYieldT: stressed,
			})
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}

	cmd.Flags().StringVar(&crop, "crop", "", "commodity name")
	cmd.Flags().Float64Var(&baseline, "baseline", 0, "baseline yield in tonnes")
	cmd.Flags().Float64Var(&stressed, "stressed", 0, "stressed yield in tonnes")
	_ = cmd.MarkFlagRequired("crop")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("stressed")
	return cmd
}

func newHazardCmd() *cobra.Command {
	var lat, lon float64
	var vegetation bool

	cmd := &cobra.Command{
		Use:   "hazard",
		Short: "Fetch the hazard sample for a coordinate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := buildDeps()
			if err != nil {
				return err
			}
			if vegetation {
				report, err := deps.hazards.Vegetation(cmd.Context(), lat, lon)
				if err != nil {
					return err
				}
				return printJSON(report)
			}
			sample, err := deps.hazards.Sample(cmd.Context(), lat, lon)
			if err != nil {
				return err
			}
			return printJSON(sample)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	cmd.Flags().BoolVar(&vegetation, "vegetation", false, "return the smoothed NDVI report instead")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
