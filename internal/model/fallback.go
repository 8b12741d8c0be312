package model

import (
	"homeval/internal/encode"
	"homeval/internal/schema"
)

// FallbackCoefficients are the fixed weights of the heuristic estimator,
// calibrated offline against the training set and embedded as configuration.
type FallbackCoefficients struct {
	LivingArea float64 `yaml:"livingArea"` // $ per above-ground sq ft
	Quality    float64 `yaml:"quality"`    // $ per overall-quality point
	YearBuilt  float64 `yaml:"yearBuilt"`  // $ per year built after 1900
	TierBase   float64 `yaml:"tierBase"`   // $ per tier step above budget
	Confidence float64 `yaml:"confidence"` // fixed reported confidence
	MinPrice   float64 `yaml:"minPrice"`   // floor on the estimate
}

// DefaultFallbackCoefficients returns the shipped calibration.
func DefaultFallbackCoefficients() FallbackCoefficients {
	return FallbackCoefficients{
		LivingArea: 100,
		Quality:    5000,
		YearBuilt:  200,
		TierBase:   10000,
		Confidence: 0.4,
		MinPrice:   25000,
	}
}

// Fallback is the deterministic heuristic estimator used when no trained
// model is usable. It works on a small set of high-signal raw fields, not on
// the encoded vector.
type Fallback struct {
	coef  FallbackCoefficients
	tiers encode.TierTable
}

// NewFallback builds the fallback estimator over the given calibration and
// tier table.
func NewFallback(coef FallbackCoefficients, tiers encode.TierTable) *Fallback {
	return &Fallback{coef: coef, tiers: tiers}
}

// Estimate produces a price from living area, overall quality, year built,
// and neighborhood tier:
//
//	price = tierBase*(6-tier) + livingArea*grLivArea
//	      + quality*overallQual + yearBuilt*max(0, yearBuilt-1900)
//
// floored at minPrice. It is total: absent or malformed fields take the
// schema's imputation defaults, so it never fails. The reported confidence
// is a fixed low constant meaning "usable estimate, not a learned
// prediction"; callers must surface usedFallback so consumers can tell the
// two apart.
func (f *Fallback) Estimate(r schema.Record) (price, confidence float64) {
	area := rawOrDefault(r, schema.FieldGrLivArea, 1500)
	quality := rawOrDefault(r, schema.FieldOverallQuality, 5)
	year := rawOrDefault(r, schema.FieldYearBuilt, 1970)

	neighborhood, _ := r.String(schema.FieldNeighborhood)
	tier := f.tiers.Lookup(neighborhood)

	yearsAfter1900 := year - 1900
	if yearsAfter1900 < 0 {
		yearsAfter1900 = 0
	}

	price = f.coef.TierBase*float64(encode.TierCount+1-int(tier)) +
		f.coef.LivingArea*area +
		f.coef.Quality*quality +
		f.coef.YearBuilt*yearsAfter1900
	if price < f.coef.MinPrice {
		price = f.coef.MinPrice
	}
	return price, f.coef.Confidence
}

func rawOrDefault(r schema.Record, field string, def float64) float64 {
	if v, ok := r.Float(field); ok {
		return v
	}
	if spec, ok := schema.Lookup(field); ok && !spec.Required {
		return spec.Default
	}
	return def
}
