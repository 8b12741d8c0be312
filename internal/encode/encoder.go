// Package encode turns raw property records into the fixed-width numeric
// vectors the estimators expect. Encoding is a pure function of the record
// and the static schema and tier tables the encoder closes over; the vector
// layout is fixed for the lifetime of the process.
package encode

import (
	"homeval/internal/schema"
)

// Encoder maps records to encoded vectors.
type Encoder struct {
	fields []schema.FieldSpec
	tiers  TierTable
	width  int
}

// New builds an encoder over the declared schema and the given tier table.
func New(tiers TierTable) *Encoder {
	e := &Encoder{
		fields: schema.Fields(),
		tiers:  tiers,
	}
	for _, f := range e.fields {
		e.width += slotCount(f)
	}
	e.width++ // derived neighborhood tier
	return e
}

// slotCount is the number of vector slots a field occupies: one for numerics
// and ordinals, one per vocabulary entry plus the reserved unknown slot for
// nominal categoricals.
func slotCount(f schema.FieldSpec) int {
	if f.Kind == schema.Numeric || f.Ordinal {
		return 1
	}
	return len(f.Vocab) + 1
}

// Width is the fixed length of every encoded vector.
func (e *Encoder) Width() int {
	return e.width
}

// Encode validates and encodes a record. Numeric fields pass through after
// range and finiteness checks, ordinal categoricals encode as their
// vocabulary index, nominal categoricals as a one-hot block whose last slot
// is reserved for unseen values, and the derived neighborhood tier is
// appended last. Fails with schema.ValidationError on malformed input.
func (e *Encoder) Encode(r schema.Record) ([]float64, Tier, error) {
	vec := make([]float64, 0, e.width)
	tier := Tier5

	for _, f := range e.fields {
		switch {
		case f.Kind == schema.Numeric:
			v, err := schema.NumericValue(r, f)
			if err != nil {
				return nil, 0, err
			}
			vec = append(vec, v)

		case f.Ordinal:
			cat := schema.CategoryValue(r, f)
			vec = append(vec, float64(ordinalIndex(f.Vocab, cat)))

		default:
			cat := schema.CategoryValue(r, f)
			block := make([]float64, len(f.Vocab)+1)
			block[hotIndex(f.Vocab, cat)] = 1
			vec = append(vec, block...)
		}

		if f.Name == schema.FieldNeighborhood {
			cat := schema.CategoryValue(r, f)
			tier = e.tiers.Lookup(cat)
		}
	}

	vec = append(vec, float64(tier))
	return vec, tier, nil
}

// TierFor resolves the neighborhood tier for a record without encoding it.
// Used by the fallback path, which works on raw fields.
func (e *Encoder) TierFor(r schema.Record) Tier {
	f, _ := schema.Lookup(schema.FieldNeighborhood)
	return e.tiers.Lookup(schema.CategoryValue(r, f))
}

// Tiers exposes the static tier table for read-only listings.
func (e *Encoder) Tiers() TierTable {
	return e.tiers
}

// ordinalIndex encodes ordinal vocabularies 1-based so the unknown category
// lands at 0, below the lowest rank.
func ordinalIndex(vocab []string, cat string) int {
	for i, c := range vocab {
		if c == cat {
			return i + 1
		}
	}
	return 0
}

// hotIndex picks the one-hot slot; the slot after the vocabulary is the
// reserved unknown slot.
func hotIndex(vocab []string, cat string) int {
	for i, c := range vocab {
		if c == cat {
			return i
		}
	}
	return len(vocab)
}
