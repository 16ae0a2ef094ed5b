package pricing

import (
	"strings"

	"github.com/jewelcraft/metalpricing/internal/rates"
)

// Metal is the catalog metal family.
type Metal string

// Supported metal families. Mixed items carry no single rate.
const (
	MetalGold     Metal = "Gold"
	MetalSilver   Metal = "Silver"
	MetalPlatinum Metal = "Platinum"
	MetalDiamond  Metal = "Diamond"
	MetalMixed    Metal = "Mixed"
)

// Purity grades known to the catalog vocabulary.
const (
	Purity24K           = "24K"
	Purity22K           = "22K"
	Purity18K           = "18K"
	Purity14K           = "14K"
	PuritySilver999     = "999"
	PuritySilver925     = "925"
	PuritySterling      = "925 Silver"
	PurityPlatinum950   = "Platinum 950"
	PurityPlatinum950Nr = "950"
	PurityCarat         = "carat"
	PurityNotApplicable = "Not Applicable"
)

// WeightUnit is grams for metals and carats for stones.
type WeightUnit string

const (
	UnitGrams  WeightUnit = "grams"
	UnitCarats WeightUnit = "carats"
)

var metals = []Metal{MetalGold, MetalSilver, MetalPlatinum, MetalDiamond, MetalMixed}

// ParseMetal matches a metal name case-insensitively.
func ParseMetal(raw string) (Metal, bool) {
	raw = strings.TrimSpace(raw)
	for _, m := range metals {
		if strings.EqualFold(raw, string(m)) {
			return m, true
		}
	}
	return "", false
}

// ParseUnit matches a weight unit, accepting common abbreviations.
func ParseUnit(raw string) (WeightUnit, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "grams", "gram", "g", "gm":
		return UnitGrams, true
	case "carats", "carat", "ct":
		return UnitCarats, true
	}
	return "", false
}

// Unit returns the weight unit items of this metal are measured in.
func (m Metal) Unit() WeightUnit {
	if m == MetalDiamond {
		return UnitCarats
	}
	return UnitGrams
}

type rateField func(rates.Snapshot) float64

// rateTable maps metal and canonical purity to the snapshot rate it reads.
var rateTable = map[Metal]map[string]rateField{
	MetalGold: {
		Purity24K: func(s rates.Snapshot) float64 { return s.GoldRate24K },
		Purity22K: func(s rates.Snapshot) float64 { return s.GoldRate22K },
		Purity18K: func(s rates.Snapshot) float64 { return s.GoldRate18K },
		Purity14K: func(s rates.Snapshot) float64 { return s.GoldRate14K },
	},
	MetalSilver: {
		PuritySilver999: func(s rates.Snapshot) float64 { return s.SilverRate999 },
		PuritySilver925: func(s rates.Snapshot) float64 { return s.SilverRate925 },
	},
	MetalPlatinum: {
		PurityPlatinum950Nr: func(s rates.Snapshot) float64 { return s.PlatinumRate950 },
	},
}

// canonicalPurity folds purity aliases onto the keys of rateTable.
func canonicalPurity(raw string) string {
	p := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	switch p {
	case "925 SILVER", "STERLING", "STERLING SILVER":
		return PuritySilver925
	case "PLATINUM 950", "PT950", "PT 950":
		return PurityPlatinum950Nr
	}
	return p
}

// selectRate returns the snapshot rate for metal/purity. Diamond ignores purity.
func selectRate(metal Metal, purity string, snap rates.Snapshot) (float64, bool) {
	if metal == MetalDiamond {
		return snap.DiamondRatePerCarat, true
	}
	byPurity, ok := rateTable[metal]
	if !ok {
		return 0, false
	}
	field, ok := byPurity[canonicalPurity(purity)]
	if !ok {
		return 0, false
	}
	return field(snap), true
}

// Supported reports whether metal/purity has a rate in the selection table.
func Supported(metal Metal, purity string) bool {
	_, ok := selectRate(metal, purity, rates.Snapshot{})
	return ok
}
