// Package orchestrator fans a batch of assets out over a bounded worker
// pool, isolates per-asset failures, and collects results in submission
// order.
package orchestrator

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/events"
	"github.com/atlasclimate/atlas/internal/runner"
	"github.com/atlasclimate/atlas/internal/telemetry"
)

// Pool bounds: W = min(cores, assets), never above maxWorkers. Each asset
// gets its own deadline so one stuck hazard lookup cannot hold the batch.
const (
	maxWorkers       = 8
	perAssetDeadline = 30 * time.Second
)

// Result is one slot of the ordered batch output. Exactly one of Report and
// Err is set.
type Result struct {
	Index  int            `json:"index"`
	Asset  *domain.Asset  `json:"-"`
	Report *domain.Report `json:"report,omitempty"`
	Err    error          `json:"-"`
}

// Status renders the slot's outcome for the response envelope.
func (r Result) Status() string {
	if r.Err != nil {
		return "error"
	}
	return "success"
}

// Orchestrator runs batches. Immutable after construction.
type Orchestrator struct {
	log     zerolog.Logger
	runner  *runner.Runner
	bus     *events.Bus
	metrics *telemetry.Metrics
}

// New builds an orchestrator. The bus and metrics may be nil (CLI use).
func New(r *runner.Runner, bus *events.Bus, metrics *telemetry.Metrics, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		log:     log.With().Str("component", "orchestrator").Logger(),
		runner:  r,
		bus:     bus,
		metrics: metrics,
	}
}

// Workers returns the pool width for a batch size.
func Workers(assets int) int {
	w := runtime.NumCPU()
	if assets < w {
		w = assets
	}
	if w > maxWorkers {
		w = maxWorkers
	}
	if w < 1 {
		w = 1
	}
	return w
}

// RunBatch executes every asset under the scenario and returns results in
// the original order. A failed asset occupies its slot with an error; the
// batch itself only fails on an empty input.
func (o *Orchestrator) RunBatch(ctx context.Context, assets []*domain.Asset, sc domain.Scenario, seed uint64) ([]Result, error) {
	if len(assets) == 0 {
		return nil, domain.Invalid("batch contains no assets")
	}

	batchID := uuid.NewString()
	workers := Workers(len(assets))
	started := time.Now()

	o.log.Info().Str("batch_id", batchID).Int("assets", len(assets)).Int("workers", workers).Msg("batch started")
	o.publish(events.TypeBatchStarted, events.BatchStarted{BatchID: batchID, Assets: len(assets), Workers: workers})
	if o.metrics != nil {
		o.metrics.BatchesTotal.Inc()
		o.metrics.BatchAssets.Observe(float64(len(assets)))
	}

	results := make([]Result, len(assets))
	jobs := make(chan int)

	var completed int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = o.runOne(ctx, idx, assets[idx], sc, seed)

				mu.Lock()
				completed++
				done := completed
				mu.Unlock()

				progress := events.AssetProgress{
					BatchID: batchID, AssetID: assets[idx].ID,
					Index: idx, Completed: done, Total: len(assets),
				}
				eventType := events.TypeAssetCompleted
				if results[idx].Err != nil {
					eventType = events.TypeAssetFailed
					progress.Error = results[idx].Err.Error()
				}
				o.publish(eventType, progress)
			}
		}()
	}

	for i := range assets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	successful, failed := 0, 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		} else {
			successful++
		}
	}

	o.publish(events.TypeBatchFinished, events.BatchFinished{
		BatchID: batchID, Successful: successful, Failed: failed,
		DurationMS: float64(time.Since(started).Microseconds()) / 1000,
	})
	o.log.Info().Str("batch_id", batchID).Int("successful", successful).Int("failed", failed).
		Dur("elapsed", time.Since(started)).Msg("batch finished")
	return results, nil
}

// runOne executes a single asset under its own deadline. Panics and errors
// stay inside the slot.
func (o *Orchestrator) runOne(ctx context.Context, idx int, asset *domain.Asset, sc domain.Scenario, seed uint64) (res Result) {
	res = Result{Index: idx, Asset: asset}

	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Str("asset", asset.ID).Msg("kernel panic isolated")
			res.Err = domain.Internal("kernel panicked", nil)
			res.Report = nil
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, perAssetDeadline)
	defer cancel()

	started := time.Now()
	report, err := o.runner.Run(runCtx, asset, sc, perAssetSeed(seed, idx))

	if o.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		o.metrics.RunsTotal.WithLabelValues(string(asset.Kind), status).Inc()
		o.metrics.RunDuration.WithLabelValues(string(asset.Kind)).Observe(time.Since(started).Seconds())
	}

	if err != nil {
		if runCtx.Err() != nil && ctx.Err() == nil {
			err = domain.Timeout("per-asset deadline expired")
		}
		res.Err = err
		return res
	}
	res.Report = report
	return res
}

// perAssetSeed decorrelates sibling assets while keeping the batch
// reproducible under its master seed.
func perAssetSeed(seed uint64, idx int) uint64 {
	if seed == 0 {
		return 0 // let the runner derive from location
	}
	return seed + uint64(idx)*0x9E3779B97F4A7C15
}

func (o *Orchestrator) publish(eventType string, payload any) {
	if o.bus != nil {
		o.bus.Publish(eventType, payload)
	}
}
