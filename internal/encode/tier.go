package encode

// Tier is a coarse neighborhood desirability classification, used both as a
// model feature and as response metadata. Tier1 is premium, Tier5 is budget.
type Tier int

const (
	Tier1 Tier = iota + 1
	Tier2
	Tier3
	Tier4
	Tier5
)

// TierCount is the number of tiers in the classification.
const TierCount = 5

func (t Tier) String() string {
	switch t {
	case Tier1:
		return "premium"
	case Tier2:
		return "above_average"
	case Tier3:
		return "average"
	case Tier4:
		return "below_average"
	case Tier5:
		return "budget"
	}
	return "budget"
}

// TierTable maps neighborhood identifiers to tiers. Identifiers outside the
// table resolve to Tier5.
type TierTable map[string]Tier

// Lookup resolves a neighborhood identifier to its tier.
func (tt TierTable) Lookup(neighborhood string) Tier {
	if t, ok := tt[neighborhood]; ok {
		return t
	}
	return Tier5
}

// Neighborhoods returns the identifiers assigned to the given tier.
func (tt TierTable) Neighborhoods(t Tier) []string {
	var out []string
	for n, nt := range tt {
		if nt == t {
			out = append(out, n)
		}
	}
	return out
}

// DefaultTierTable returns the calibrated tier assignment shipped with the
// service, derived from median sale prices per neighborhood on the training
// set.
func DefaultTierTable() TierTable {
	return TierTable{
		"StoneBr": Tier1, "NridgHt": Tier1, "NoRidge": Tier1,
		"Somerst": Tier2, "Timber": Tier2, "Veenker": Tier2,
		"CollgCr": Tier2, "Crawfor": Tier2, "ClearCr": Tier2,
		"Gilbert": Tier3, "NWAmes": Tier3, "SawyerW": Tier3,
		"Mitchel": Tier3, "Blmngtn": Tier3,
		"NAmes": Tier4, "NPkVill": Tier4, "SWISU": Tier4,
		"Blueste": Tier4, "Sawyer": Tier4, "OldTown": Tier4,
		"Edwards": Tier4,
		"BrkSide": Tier5, "BrDale": Tier5, "IDOTRR": Tier5,
		"MeadowV": Tier5,
	}
}
