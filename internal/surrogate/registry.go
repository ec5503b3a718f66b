package surrogate

import (
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/atlasclimate/atlas/internal/domain"
	"github.com/atlasclimate/atlas/internal/physics"
)

// Well-known model file names under the model directory.
const (
	CoastalRunupModel    = "coastal_runup.json"
	UrbanFloodDepthModel = "urban_flood_depth.json"
)

// Registry holds the fitted regressors loaded at startup. It is read-only
// after Load; lookups never touch the disk again.
type Registry struct {
	log    zerolog.Logger
	dir    string
	mu     sync.RWMutex
	models map[string]physics.Regressor
}

// NewRegistry creates an empty registry rooted at the model directory.
func NewRegistry(dir string, log zerolog.Logger) *Registry {
	return &Registry{
		log:    log.With().Str("component", "surrogate").Logger(),
		dir:    dir,
		models: make(map[string]physics.Regressor),
	}
}

// Load attempts every well-known model file. Missing or malformed files are
// logged and skipped; the affected endpoints degrade to their closed-form
// fallbacks or report MODEL_NOT_AVAILABLE.
func (r *Registry) Load() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range []string{CoastalRunupModel, UrbanFloodDepthModel} {
		path := filepath.Join(r.dir, name)
		ens, err := LoadEnsemble(path)
		if err != nil {
			if domain.KindOf(err) == domain.KindModelNotAvailable {
				r.log.Info().Str("model", name).Msg("surrogate model not present, using fallback")
			} else {
				r.log.Warn().Err(err).Str("model", name).Msg("surrogate model rejected")
			}
			continue
		}
		r.models[name] = ens
		r.log.Info().Str("model", name).Int("trees", len(ens.Trees)).Msg("surrogate model loaded")
	}
}

// Get returns the regressor for a well-known model name, or nil when the
// model is not loaded. Kernels treat nil as "use the closed-form fallback".
func (r *Registry) Get(name string) physics.Regressor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[name]
}

// Require returns the regressor or a MODEL_NOT_AVAILABLE error for
// endpoints that have no closed-form fallback.
func (r *Registry) Require(name string) (physics.Regressor, error) {
	if m := r.Get(name); m != nil {
		return m, nil
	}
	return nil, domain.ModelNotAvailable(name)
}

// Available lists the loaded model names, for the system status report.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	return names
}
