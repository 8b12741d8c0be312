package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// artifact is the persisted JSON form of one trained estimator plus its
// recorded held-out accuracy.
type artifact struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	MAE       float64   `json:"mae"`
	Kind      string    `json:"kind"`

	Linear *struct {
		Intercept float64   `json:"intercept"`
		Weights   []float64 `json:"weights"`
	} `json:"linear,omitempty"`

	Tree *struct {
		Base  float64      `json:"base"`
		Trees [][]treeNode `json:"trees"`
	} `json:"tree,omitempty"`
}

// Handle is an opaque reference to one loaded estimator plus its historical
// error metric. Handles are created at load time and read-only afterwards.
type Handle struct {
	Name      string
	Version   string
	TrainedAt time.Time
	MAE       float64
	Source    string

	estimator Estimator
}

// Predict runs the underlying estimator on an encoded vector.
func (h *Handle) Predict(vec []float64) (float64, error) {
	return h.estimator.Predict(vec)
}

// LoadError describes one artifact that could not be used. It is recovered
// locally by skipping the artifact and is never fatal to the registry.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model artifact %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Registry holds every successfully loaded estimator. It is built once
// during process startup and treated as read-only afterwards, so concurrent
// readers need no synchronization.
type Registry struct {
	handles []*Handle
	skipped []*LoadError
}

// Load builds a registry from a set of artifact sources: local *.json file
// paths, directories of them, and http(s) URLs fetched with the given
// client. Sources are sorted lexically so ensemble iteration order is fixed
// at load time. A corrupt or unreadable artifact is skipped with a warning;
// the registry may legitimately end up empty.
//
// width is the encoder's vector width; linear artifacts whose weight count
// disagrees with it are unusable and skipped.
func Load(sources []string, width int, client *resty.Client) *Registry {
	expanded := expandSources(sources)
	sort.Strings(expanded)

	reg := &Registry{}
	for _, src := range expanded {
		h, err := loadOne(src, width, client)
		if err != nil {
			le := &LoadError{Source: src, Err: err}
			reg.skipped = append(reg.skipped, le)
			log.Warn().Err(err).Str("source", src).Msg("skipping unusable model artifact")
			continue
		}
		reg.handles = append(reg.handles, h)
		log.Info().
			Str("model", h.Name).
			Str("version", h.Version).
			Float64("mae", h.MAE).
			Str("source", src).
			Msg("model loaded")
	}

	if len(reg.handles) == 0 {
		log.Warn().Int("skipped", len(reg.skipped)).Msg("model registry is empty, predictions will use the fallback estimator")
	}
	return reg
}

// All returns the loaded handles in their fixed load order.
func (r *Registry) All() []*Handle {
	return r.handles
}

// Len returns the number of usable models.
func (r *Registry) Len() int {
	return len(r.handles)
}

// Skipped returns the artifacts passed over during load.
func (r *Registry) Skipped() []*LoadError {
	return r.skipped
}

// expandSources replaces directory entries with the *.json files they
// contain. Unreadable directories pass through unchanged and fail per-file
// later.
func expandSources(sources []string) []string {
	var out []string
	for _, src := range sources {
		if isRemote(src) {
			out = append(out, src)
			continue
		}
		info, err := os.Stat(src)
		if err == nil && info.IsDir() {
			matches, _ := filepath.Glob(filepath.Join(src, "*.json"))
			out = append(out, matches...)
			continue
		}
		out = append(out, src)
	}
	return out
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

func loadOne(src string, width int, client *resty.Client) (*Handle, error) {
	data, err := readArtifact(src, client)
	if err != nil {
		return nil, err
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}
	if a.MAE <= 0 {
		return nil, fmt.Errorf("artifact %q has non-positive mae %g", a.Name, a.MAE)
	}

	var est Estimator
	switch a.Kind {
	case "linear":
		if a.Linear == nil {
			return nil, fmt.Errorf("artifact %q declares kind linear but carries no parameters", a.Name)
		}
		if len(a.Linear.Weights) != width {
			return nil, fmt.Errorf("artifact %q has %d weights, encoder width is %d", a.Name, len(a.Linear.Weights), width)
		}
		est = &linearEstimator{intercept: a.Linear.Intercept, weights: a.Linear.Weights}
	case "tree":
		if a.Tree == nil || len(a.Tree.Trees) == 0 {
			return nil, fmt.Errorf("artifact %q declares kind tree but carries no trees", a.Name)
		}
		est = &treeEstimator{base: a.Tree.Base, trees: a.Tree.Trees}
	default:
		return nil, fmt.Errorf("unsupported estimator kind %q", a.Kind)
	}

	return &Handle{
		Name:      a.Name,
		Version:   a.Version,
		TrainedAt: a.TrainedAt,
		MAE:       a.MAE,
		Source:    src,
		estimator: est,
	}, nil
}

func readArtifact(src string, client *resty.Client) ([]byte, error) {
	if !isRemote(src) {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("read artifact: %w", err)
		}
		return data, nil
	}

	if client == nil {
		return nil, fmt.Errorf("remote artifact %s but no http client configured", src)
	}
	resp, err := client.R().Get(src)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch artifact: status %s", resp.Status())
	}
	return resp.Body(), nil
}
