// Package schema defines the property record schema used by the prediction
// pipeline. Every field a caller may submit is declared here with its type,
// valid range, imputation rule, and categorical vocabulary, so that
// validation failures are enumerable rather than emergent.
package schema

import (
	"errors"
	"fmt"
	"math"
)

// Kind distinguishes numeric fields from categorical ones.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

// Unknown is the reserved category every categorical field accepts. Unseen
// and missing categorical values both resolve to it.
const Unknown = "unknown"

// Field names, matching the wire names of the original valuation API.
const (
	FieldOverallQuality   = "overall_quality"
	FieldOverallCondition = "overall_condition"
	FieldYearBuilt        = "year_built"
	FieldYearRemod        = "year_remod"
	FieldLotArea          = "lot_area"
	FieldGrLivArea        = "gr_liv_area"
	FieldTotalBsmtSF      = "total_bsmt_sf"
	FieldFirstFlrSF       = "first_flr_sf"
	FieldSecondFlrSF      = "second_flr_sf"
	FieldBedrooms         = "bedrooms"
	FieldFullBath         = "full_bath"
	FieldHalfBath         = "half_bath"
	FieldKitchenQual      = "kitchen_qual"
	FieldGarageCars       = "garage_cars"
	FieldGarageArea       = "garage_area"
	FieldGarageType       = "garage_type"
	FieldFireplaces       = "fireplaces"
	FieldPoolArea         = "pool_area"
	FieldNeighborhood     = "neighborhood"
	FieldBldgType         = "bldg_type"
	FieldHouseStyle       = "house_style"
)

// FieldSpec declares one field of the property schema.
type FieldSpec struct {
	Name string
	Kind Kind

	// Numeric fields only.
	Min, Max float64
	// Required numeric fields have no imputation rule; a missing value is a
	// ValidationError. Non-required numerics fall back to Default, the median
	// of the training distribution.
	Required bool
	Default  float64

	// Categorical fields only. Ordinal vocabularies are encoded by index,
	// nominal ones as a one-hot block with a trailing unknown slot.
	Vocab   []string
	Ordinal bool
}

// Fields returns the full schema in encoding order. The order is part of the
// pipeline contract: the encoded vector layout is derived from it and must
// stay stable for the lifetime of any loaded model.
func Fields() []FieldSpec {
	return fields
}

var fields = []FieldSpec{
	{Name: FieldOverallQuality, Kind: Numeric, Min: 1, Max: 10, Required: true},
	{Name: FieldOverallCondition, Kind: Numeric, Min: 1, Max: 10, Default: 5},
	{Name: FieldYearBuilt, Kind: Numeric, Min: 1800, Max: 2026, Required: true},
	{Name: FieldYearRemod, Kind: Numeric, Min: 1800, Max: 2026, Default: 1993},
	{Name: FieldLotArea, Kind: Numeric, Min: 0, Max: 500000, Required: true},
	{Name: FieldGrLivArea, Kind: Numeric, Min: 0, Max: 20000, Required: true},
	{Name: FieldTotalBsmtSF, Kind: Numeric, Min: 0, Max: 10000, Default: 992},
	{Name: FieldFirstFlrSF, Kind: Numeric, Min: 0, Max: 10000, Default: 1087},
	{Name: FieldSecondFlrSF, Kind: Numeric, Min: 0, Max: 10000, Default: 0},
	{Name: FieldBedrooms, Kind: Numeric, Min: 0, Max: 10, Default: 3},
	{Name: FieldFullBath, Kind: Numeric, Min: 0, Max: 5, Default: 2},
	{Name: FieldHalfBath, Kind: Numeric, Min: 0, Max: 3, Default: 0},
	{Name: FieldKitchenQual, Kind: Categorical, Ordinal: true,
		Vocab: []string{"Po", "Fa", "TA", "Gd", "Ex"}},
	{Name: FieldGarageCars, Kind: Numeric, Min: 0, Max: 5, Default: 2},
	{Name: FieldGarageArea, Kind: Numeric, Min: 0, Max: 3000, Default: 480},
	{Name: FieldGarageType, Kind: Categorical,
		Vocab: []string{"Attchd", "Detchd", "BuiltIn", "CarPort", "Basment", "None"}},
	{Name: FieldFireplaces, Kind: Numeric, Min: 0, Max: 4, Default: 0},
	{Name: FieldPoolArea, Kind: Numeric, Min: 0, Max: 2000, Default: 0},
	{Name: FieldNeighborhood, Kind: Categorical,
		Vocab: []string{
			"NAmes", "CollgCr", "OldTown", "Edwards", "Somerst", "NridgHt",
			"Gilbert", "Sawyer", "NWAmes", "SawyerW", "Mitchel", "BrkSide",
			"Crawfor", "IDOTRR", "Timber", "NoRidge", "StoneBr", "SWISU",
			"ClearCr", "MeadowV", "Blmngtn", "BrDale", "Veenker", "NPkVill",
			"Blueste",
		}},
	{Name: FieldBldgType, Kind: Categorical,
		Vocab: []string{"1Fam", "TwnhsE", "Duplex", "Twnhs", "2fmCon"}},
	{Name: FieldHouseStyle, Kind: Categorical,
		Vocab: []string{"1Story", "2Story", "1.5Fin", "SLvl", "SFoyer", "1.5Unf", "2.5Unf", "2.5Fin"}},
}

// Lookup returns the spec for a field name.
func Lookup(name string) (FieldSpec, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// ValidationError reports malformed or out-of-range caller input. It is not
// retryable; the request layer maps it to a rejected request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NumericValue resolves the numeric field f from the record: present values
// are range-checked, absent values use the imputation rule. Required fields
// with no value fail with ValidationError.
func NumericValue(r Record, f FieldSpec) (float64, error) {
	v, ok := r.Float(f.Name)
	if !ok {
		if r.Has(f.Name) {
			return 0, &ValidationError{Field: f.Name, Reason: "value is not a number"}
		}
		if f.Required {
			return 0, &ValidationError{Field: f.Name, Reason: "required and no imputation rule exists"}
		}
		return f.Default, nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: f.Name, Reason: "value is not finite"}
	}
	if v < f.Min || v > f.Max {
		return 0, &ValidationError{
			Field:  f.Name,
			Reason: fmt.Sprintf("value %g out of range [%g, %g]", v, f.Min, f.Max),
		}
	}
	return v, nil
}

// CategoryValue resolves the categorical field f from the record. The result
// is always a member of f.Vocab or Unknown: unseen categories map to Unknown
// rather than failing, so encoding stays total over any string input.
func CategoryValue(r Record, f FieldSpec) string {
	v, ok := r.String(f.Name)
	if !ok {
		return Unknown
	}
	for _, c := range f.Vocab {
		if c == v {
			return v
		}
	}
	return Unknown
}
