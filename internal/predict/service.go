// Package predict is the prediction pipeline facade: it sequences feature
// encoding, the model ensemble, and the deterministic fallback into a single
// entry point. It is the only surface the request layer calls.
package predict

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"homeval/internal/encode"
	"homeval/internal/model"
	"homeval/internal/schema"
)

// MetricsInterface defines the metrics methods the facade records against.
type MetricsInterface interface {
	PredictionsInc()
	PredictionFailuresInc()
	FallbackUseInc()
	ValidationErrorsInc()
	LatencyObserve(float64)
	ConfidenceObserve(float64)
}

// Journal receives every served prediction for offline accuracy review.
type Journal interface {
	StorePrediction(rec schema.Record, res Result) error
}

// Result is one completed prediction, produced fresh per request and never
// mutated after construction.
type Result struct {
	Price        float64
	Confidence   float64
	Tier         encode.Tier
	UsedFallback bool
}

// Service sequences encode, ensemble, and fallback. It is stateless per
// request beyond reading the immutable registry, so any number of
// predictions may run concurrently.
type Service struct {
	encoder  *encode.Encoder
	registry *model.Registry
	fallback *model.Fallback
	metrics  MetricsInterface
	journal  Journal
}

// New builds the facade. metrics and journal may be nil.
func New(enc *encode.Encoder, reg *model.Registry, fb *model.Fallback, m MetricsInterface, j Journal) *Service {
	return &Service{
		encoder:  enc,
		registry: reg,
		fallback: fb,
		metrics:  m,
		journal:  j,
	}
}

// Predict runs the pipeline for one raw record. Validation errors propagate
// unchanged: they are a caller-input problem the pipeline cannot recover
// from. An empty or fully failing registry is answered transparently by the
// fallback estimator, so a structurally valid record always yields a result.
func (s *Service) Predict(rec schema.Record) (Result, error) {
	start := time.Now()

	vec, tier, err := s.encoder.Encode(rec)
	if err != nil {
		if s.metrics != nil {
			s.metrics.PredictionFailuresInc()
			if schema.IsValidationError(err) {
				s.metrics.ValidationErrorsInc()
			}
		}
		return Result{}, err
	}

	var res Result
	price, confidence, err := model.EnsemblePredict(vec, s.registry)
	switch {
	case err == nil:
		res = Result{Price: price, Confidence: confidence, Tier: tier}
	case errors.Is(err, model.ErrNoModels):
		// The fallback works on the raw record: it uses a smaller, fixed
		// feature subset, not the encoded vector.
		price, confidence = s.fallback.Estimate(rec)
		res = Result{Price: price, Confidence: confidence, Tier: tier, UsedFallback: true}
		if s.metrics != nil {
			s.metrics.FallbackUseInc()
		}
	default:
		if s.metrics != nil {
			s.metrics.PredictionFailuresInc()
		}
		return Result{}, err
	}

	if s.metrics != nil {
		s.metrics.PredictionsInc()
		s.metrics.ConfidenceObserve(res.Confidence)
		s.metrics.LatencyObserve(time.Since(start).Seconds())
	}
	if s.journal != nil {
		if err := s.journal.StorePrediction(rec, res); err != nil {
			log.Warn().Err(err).Msg("failed to journal prediction")
		}
	}
	return res, nil
}

// Models exposes read-only registry metadata for the request layer.
func (s *Service) Models() []*model.Handle {
	return s.registry.All()
}

// Encoder exposes the encoder for static listings (tiers, vocabularies).
func (s *Service) Encoder() *encode.Encoder {
	return s.encoder
}
