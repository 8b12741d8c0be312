package schema

// Record is one property as submitted by a caller: a raw name-to-value
// mapping, unvalidated and immutable once received. Values arrive as JSON
// scalars, so numbers may be float64, int, or a json.Number-style string is
// not accepted.
type Record map[string]any

// Has reports whether a field carries a non-null value.
func (r Record) Has(name string) bool {
	v, ok := r[name]
	return ok && v != nil
}

// Float returns the numeric value of a field and whether it is present.
// Explicit nulls count as absent.
func (r Record) Float(name string) (float64, bool) {
	v, ok := r[name]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// String returns the string value of a field and whether it is present.
func (r Record) String(name string) (string, bool) {
	v, ok := r[name]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
