package surrogate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasclimate/atlas/internal/domain"
)

// A two-tree stump ensemble over (x0, x1): base 1.0, first tree adds 2 when
// x0 > 0.5 else 0.5, second adds 3 when x1 > 10 else -1.
const stumpEnsemble = `{
	"name": "test",
	"n_features": 2,
	"base": 1.0,
	"trees": [
		{"nodes": [
			{"feature": 0, "threshold": 0.5, "left": 1, "right": 2},
			{"leaf": true, "value": 0.5},
			{"leaf": true, "value": 2.0}
		]},
		{"nodes": [
			{"feature": 1, "threshold": 10, "left": 1, "right": 2},
			{"leaf": true, "value": -1.0},
			{"leaf": true, "value": 3.0}
		]}
	]
}`

func writeModel(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestEnsemble_Predict(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "m.json", stumpEnsemble)

	ens, err := LoadEnsemble(filepath.Join(dir, "m.json"))
	require.NoError(t, err)

	tests := []struct {
		features []float64
		want     float64
	}{
		{[]float64{0.0, 0.0}, 1 + 0.5 - 1},
		{[]float64{1.0, 0.0}, 1 + 2.0 - 1},
		{[]float64{1.0, 20.0}, 1 + 2.0 + 3},
		{[]float64{0.0, 20.0}, 1 + 0.5 + 3},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ens.Predict(tt.features), 1e-12)
	}

	// Short vectors are zero-padded, not a panic.
	assert.InDelta(t, 0.5, ens.Predict(nil), 1e-12)
}

func TestLoadEnsemble_Missing(t *testing.T) {
	_, err := LoadEnsemble(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Equal(t, domain.KindModelNotAvailable, domain.KindOf(err))
}

func TestLoadEnsemble_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no trees", `{"n_features": 2, "trees": []}`},
		{"no features", `{"n_features": 0, "trees": [{"nodes":[{"leaf":true,"value":1}]}]}`},
		{"bad feature index", `{"n_features": 1, "trees": [{"nodes":[
			{"feature": 3, "threshold": 0, "left": 1, "right": 2},
			{"leaf": true, "value": 0}, {"leaf": true, "value": 1}]}]}`},
		{"cyclic children", `{"n_features": 1, "trees": [{"nodes":[
			{"feature": 0, "threshold": 0, "left": 0, "right": 1},
			{"leaf": true, "value": 0}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeModel(t, dir, "m.json", tt.body)
			_, err := LoadEnsemble(filepath.Join(dir, "m.json"))
			require.Error(t, err)
		})
	}
}

func TestRegistry_LoadAndRequire(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, CoastalRunupModel, stumpEnsemble)

	reg := NewRegistry(dir, zerolog.Nop())
	reg.Load()

	got, err := reg.Require(CoastalRunupModel)
	require.NoError(t, err)
	assert.NotNil(t, got)

	_, err = reg.Require(UrbanFloodDepthModel)
	require.Error(t, err)
	assert.Equal(t, domain.KindModelNotAvailable, domain.KindOf(err))

	assert.Nil(t, reg.Get(UrbanFloodDepthModel))
	assert.Equal(t, []string{CoastalRunupModel}, reg.Available())
}
