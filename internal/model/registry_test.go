package model

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWidth = 4

func writeLinearArtifact(t *testing.T, dir, file, name string, mae float64, weights []float64) string {
	t.Helper()
	a := map[string]any{
		"name":    name,
		"version": "20240101-000000",
		"mae":     mae,
		"kind":    "linear",
		"linear":  map[string]any{"intercept": 50000.0, "weights": weights},
	}
	data, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadSkipsCorruptArtifacts(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeLinearArtifact(t, dir, "a_good.json", "good", 12000, make([]float64, testWidth))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_corrupt.json"), []byte("{not json"), 0o600))
	writeLinearArtifact(t, dir, "c_badwidth.json", "badwidth", 9000, make([]float64, testWidth+3))

	reg := Load([]string{dir}, testWidth, nil)

	require.Equal(t, 1, reg.Len(), "only the well-formed artifact loads")
	assert.Equal(t, "good", reg.All()[0].Name)
	assert.Len(t, reg.Skipped(), 2)
}

func TestLoadRejectsBadMetadata(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeLinearArtifact(t, dir, "zero_mae.json", "zero-mae", 0, make([]float64, testWidth))
	data, _ := json.Marshal(map[string]any{"name": "mystery", "mae": 100.0, "kind": "quantum"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unknown_kind.json"), data, 0o600))

	reg := Load([]string{dir}, testWidth, nil)
	assert.Equal(t, 0, reg.Len())
	assert.Len(t, reg.Skipped(), 2)
}

func TestLoadEmptyIsLegitimate(t *testing.T) {
	t.Parallel()

	reg := Load([]string{t.TempDir()}, testWidth, nil)
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Skipped())
	assert.Empty(t, reg.All())
}

func TestLoadDeterministicOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	// Written out of order on purpose; load order is lexical by source.
	writeLinearArtifact(t, dir, "03_gbm.json", "gbm", 8000, make([]float64, testWidth))
	writeLinearArtifact(t, dir, "01_lasso.json", "lasso", 14000, make([]float64, testWidth))
	writeLinearArtifact(t, dir, "02_ridge.json", "ridge", 13000, make([]float64, testWidth))

	for i := 0; i < 3; i++ {
		reg := Load([]string{dir}, testWidth, nil)
		require.Equal(t, 3, reg.Len())
		names := []string{reg.All()[0].Name, reg.All()[1].Name, reg.All()[2].Name}
		assert.Equal(t, []string{"lasso", "ridge", "gbm"}, names)
	}
}

func TestLoadRemoteArtifact(t *testing.T) {
	t.Parallel()

	artifact := map[string]any{
		"name":    "remote-lasso",
		"version": "20240515-120000",
		"mae":     11000.0,
		"kind":    "linear",
		"linear":  map[string]any{"intercept": 10000.0, "weights": []float64{1, 2, 3, 4}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models/lasso.json" {
			json.NewEncoder(w).Encode(artifact)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := resty.New()
	reg := Load([]string{srv.URL + "/models/lasso.json"}, testWidth, client)
	require.Equal(t, 1, reg.Len())
	assert.Equal(t, "remote-lasso", reg.All()[0].Name)

	// A 404 is skipped, not fatal.
	reg = Load([]string{srv.URL + "/models/missing.json"}, testWidth, client)
	assert.Equal(t, 0, reg.Len())
	assert.Len(t, reg.Skipped(), 1)
}

func TestLinearEstimatorPredict(t *testing.T) {
	t.Parallel()

	est := &linearEstimator{intercept: 1000, weights: []float64{2, 3}}
	p, err := est.Predict([]float64{10, 100})
	require.NoError(t, err)
	assert.Equal(t, 1000+20+300.0, p)

	_, err = est.Predict([]float64{1})
	assert.Error(t, err, "width mismatch must fail")
}

func TestTreeEstimatorPredict(t *testing.T) {
	t.Parallel()

	// Single stump: feature 0 <= 5 -> 100, else 200. Base 1000.
	est := &treeEstimator{
		base: 1000,
		trees: [][]treeNode{{
			{Feature: 0, Threshold: 5, Left: 1, Right: 2},
			{Leaf: true, Value: 100},
			{Leaf: true, Value: 200},
		}},
	}

	p, err := est.Predict([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, 1100.0, p)

	p, err = est.Predict([]float64{7})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, p)
}

func TestTreeEstimatorMalformedTree(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []treeNode
	}{
		{"empty", nil},
		{"feature out of range", []treeNode{{Feature: 9, Threshold: 1, Left: 1, Right: 1}, {Leaf: true}}},
		{"child out of bounds", []treeNode{{Feature: 0, Threshold: 1, Left: 5, Right: 5}, {Leaf: true}}},
		{"cycle", []treeNode{{Feature: 0, Threshold: 1, Left: 0, Right: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := &treeEstimator{trees: [][]treeNode{tt.nodes}}
			_, err := est.Predict([]float64{1})
			assert.Error(t, err)
		})
	}
}

func TestLoadTreeArtifact(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	a := map[string]any{
		"name":    "gbt",
		"version": "20240301-090000",
		"mae":     9500.0,
		"kind":    "tree",
		"tree": map[string]any{
			"base": 150000.0,
			"trees": [][]map[string]any{{
				{"feature": 0, "threshold": 6.0, "left": 1, "right": 2},
				{"leaf": true, "value": -20000.0},
				{"leaf": true, "value": 30000.0},
			}},
		},
	}
	data, err := json.Marshal(a)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gbt.json"), data, 0o600))

	reg := Load([]string{dir}, testWidth, nil)
	require.Equal(t, 1, reg.Len())

	vec := make([]float64, testWidth)
	vec[0] = 8
	p, err := reg.All()[0].Predict(vec)
	require.NoError(t, err)
	assert.Equal(t, 180000.0, p)
}

func TestLoadExplicitFileList(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	p1 := writeLinearArtifact(t, dir, "one.json", "one", 10000, make([]float64, testWidth))
	missing := filepath.Join(dir, "nope.json")

	reg := Load([]string{p1, missing}, testWidth, nil)
	require.Equal(t, 1, reg.Len())
	require.Len(t, reg.Skipped(), 1)
	var le *LoadError
	require.ErrorAs(t, fmt.Errorf("wrap: %w", reg.Skipped()[0]), &le)
	assert.Equal(t, missing, le.Source)
}
