// Package surrogate loads pre-fitted regression models from disk and serves
// them to the physics kernels as opaque regressors. Models are immutable
// after load and safe for concurrent use. A missing model file never aborts
// the service; the affected endpoints report MODEL_NOT_AVAILABLE instead.
package surrogate

import (
	"encoding/json"
	"os"

	"github.com/atlasclimate/atlas/internal/domain"
)

// treeNode is one node of a fitted decision tree. Leaves carry Value; inner
// nodes route on Feature against Threshold.
type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

type tree struct {
	Nodes []treeNode `json:"nodes"`
}

// Ensemble is an additive tree ensemble: prediction = base + sum of tree
// outputs. This covers gradient-boosted exports with the learning rate
// folded into the leaf values.
type Ensemble struct {
	Name      string  `json:"name"`
	NFeatures int     `json:"n_features"`
	Base      float64 `json:"base"`
	Trees     []tree  `json:"trees"`
}

// Predict evaluates the ensemble on a feature vector. Short feature vectors
// are padded with zeros so a malformed caller degrades instead of panicking.
func (e *Ensemble) Predict(features []float64) float64 {
	if len(features) < e.NFeatures {
		padded := make([]float64, e.NFeatures)
		copy(padded, features)
		features = padded
	}

	out := e.Base
	for i := range e.Trees {
		out += e.Trees[i].eval(features)
	}
	return out
}

func (t *tree) eval(features []float64) float64 {
	idx := 0
	for {
		n := t.Nodes[idx]
		if n.Leaf {
			return n.Value
		}
		if features[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// LoadEnsemble reads and validates a fitted tree-ensemble file.
func LoadEnsemble(path string) (*Ensemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ModelNotAvailable(path)
		}
		return nil, domain.Internal("reading model file", err)
	}

	var e Ensemble
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, domain.Internal("parsing model file", err)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

func (e *Ensemble) validate() error {
	if e.NFeatures <= 0 {
		return domain.Invalid("model declares no features")
	}
	if len(e.Trees) == 0 {
		return domain.Invalid("model has no trees")
	}
	for ti, t := range e.Trees {
		if len(t.Nodes) == 0 {
			return domain.Invalidf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= e.NFeatures {
				return domain.Invalidf("tree %d node %d routes on unknown feature %d", ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return domain.Invalidf("tree %d node %d has out-of-order children", ti, ni)
			}
		}
	}
	return nil
}
