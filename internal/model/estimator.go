// Package model holds the trained-estimator registry, the ensemble
// predictor, and the deterministic fallback. Model artifacts are produced by
// the offline training pipeline and consumed read-only here; the package
// never trains or mutates a model.
package model

import (
	"fmt"
	"math"
)

// Estimator is one trained price model: it accepts an encoded feature vector
// and returns a price.
type Estimator interface {
	Predict(vec []float64) (float64, error)
}

// linearEstimator scores a vector with a fitted linear model.
type linearEstimator struct {
	intercept float64
	weights   []float64
}

func (m *linearEstimator) Predict(vec []float64) (float64, error) {
	if len(vec) != len(m.weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.weights), len(vec))
	}
	p := m.intercept
	for i, w := range m.weights {
		p += w * vec[i]
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("non-finite prediction")
	}
	return p, nil
}

// treeNode is one node of a regression tree, stored as a flat array with
// child indexes. Leaves carry the prediction value.
type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// treeEstimator scores a vector with an additive ensemble of regression
// trees (gradient-boosted trees exported from the training pipeline).
type treeEstimator struct {
	base  float64
	trees [][]treeNode
}

func (m *treeEstimator) Predict(vec []float64) (float64, error) {
	p := m.base
	for ti, nodes := range m.trees {
		v, err := evalTree(nodes, vec)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", ti, err)
		}
		p += v
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("non-finite prediction")
	}
	return p, nil
}

func evalTree(nodes []treeNode, vec []float64) (float64, error) {
	if len(nodes) == 0 {
		return 0, fmt.Errorf("empty tree")
	}
	idx := 0
	for steps := 0; steps <= len(nodes); steps++ {
		n := nodes[idx]
		if n.Leaf {
			return n.Value, nil
		}
		if n.Feature < 0 || n.Feature >= len(vec) {
			return 0, fmt.Errorf("split on feature %d outside vector of width %d", n.Feature, len(vec))
		}
		if vec[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
		if idx < 0 || idx >= len(nodes) {
			return 0, fmt.Errorf("child index %d out of bounds", idx)
		}
	}
	return 0, fmt.Errorf("tree walk did not reach a leaf")
}
