package model

import (
	"errors"
	"math"

	"github.com/rs/zerolog/log"
)

// ErrNoModels signals that no estimator produced a usable prediction. It is
// an internal condition: the prediction service answers it with the fallback
// estimator, so callers never see it.
var ErrNoModels = errors.New("no models available")

// EnsemblePredict queries every loaded estimator and combines their outputs
// into one price and a confidence score.
//
// Prices are combined by a weighted average where each model's weight is the
// inverse of its historical mean absolute error, normalized to sum to one:
// models that were more accurate on held-out data get more influence.
//
// Confidence is derived from inter-model agreement: the coefficient of
// variation of the individual prices, cv = stddev/mean, mapped to
// clamp(1-cv, 0, 1). A single-model registry yields cv = 0 and confidence
// 1.0 — high confidence from lack of disagreement, not verified accuracy.
//
// An estimator that fails on this vector is excluded from this call only; if
// every estimator is excluded the call fails with ErrNoModels.
func EnsemblePredict(vec []float64, reg *Registry) (price, confidence float64, err error) {
	if reg == nil || reg.Len() == 0 {
		return 0, 0, ErrNoModels
	}

	prices := make([]float64, 0, reg.Len())
	weights := make([]float64, 0, reg.Len())
	for _, h := range reg.All() {
		p, err := h.Predict(vec)
		if err != nil {
			log.Warn().Err(err).Str("model", h.Name).Msg("estimator failed, excluding from ensemble")
			continue
		}
		prices = append(prices, p)
		weights = append(weights, 1/h.MAE)
	}
	if len(prices) == 0 {
		return 0, 0, ErrNoModels
	}

	var wsum float64
	for _, w := range weights {
		wsum += w
	}
	for i, w := range weights {
		price += w / wsum * prices[i]
	}

	return price, agreement(prices), nil
}

// agreement maps prediction dispersion to a [0,1] confidence score.
func agreement(prices []float64) float64 {
	mean := 0.0
	for _, p := range prices {
		mean += p
	}
	mean /= float64(len(prices))
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, p := range prices {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(prices))

	cv := math.Sqrt(variance) / math.Abs(mean)
	return clamp(1-cv, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
