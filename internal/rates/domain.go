package rates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jewelcraft/metalpricing/internal/money"
	"github.com/jewelcraft/metalpricing/internal/shared"
)

// Purity factors applied to the 24K gold and fine silver base rates.
var (
	Factor22K       = decimal.RequireFromString("0.916")
	Factor18K       = decimal.RequireFromString("0.750")
	Factor14K       = decimal.RequireFromString("0.583")
	FactorSilver925 = decimal.RequireFromString("0.925")
)

// MaxNotesLength bounds the free-text notes stored with a snapshot.
const MaxNotesLength = 500

// ErrInvalidRate reports a base rate outside its allowed range.
var ErrInvalidRate = errors.New("rates: invalid rate")

// Snapshot is an immutable set of metal rates. CreatedAt doubles as its version.
type Snapshot struct {
	ID                  int64     `json:"id"`
	GoldRate24K         float64   `json:"goldRate24K"`
	GoldRate22K         float64   `json:"goldRate22K"`
	GoldRate18K         float64   `json:"goldRate18K"`
	GoldRate14K         float64   `json:"goldRate14K"`
	SilverRate999       float64   `json:"silverRate999"`
	SilverRate925       float64   `json:"silverRate925"`
	DiamondRatePerCarat float64   `json:"diamondRatePerCarat"`
	PlatinumRate950     float64   `json:"platinumRate950"`
	UpdatedBy           string    `json:"updatedBy"`
	Notes               string    `json:"notes,omitempty"`
	IsActive            bool      `json:"isActive"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Version identifies the snapshot for cache keys and logs.
func (s Snapshot) Version() string {
	return s.CreatedAt.UTC().Format(time.RFC3339Nano)
}

// PurityRates holds the rates derived from the base rates.
type PurityRates struct {
	Gold22K   float64
	Gold18K   float64
	Gold14K   float64
	Silver925 float64
}

// DeriveFromBase computes each purity rate from its base rate, rounding every
// factor product independently to 2 decimal places.
func DeriveFromBase(goldRate24K, silverRate999 float64) PurityRates {
	return PurityRates{
		Gold22K:   money.Factor(goldRate24K, Factor22K),
		Gold18K:   money.Factor(goldRate24K, Factor18K),
		Gold14K:   money.Factor(goldRate24K, Factor14K),
		Silver925: money.Factor(silverRate999, FactorSilver925),
	}
}

// BaseRates are the administrator-supplied spot rates.
type BaseRates struct {
	GoldRate24K         float64
	SilverRate999       float64
	DiamondRatePerCarat float64
	PlatinumRate950     float64
}

// NewSnapshot builds an active snapshot from base rates. Derived rates are
// always recomputed here and nowhere else.
func NewSnapshot(base BaseRates, updatedBy, notes string, at time.Time) (Snapshot, error) {
	switch {
	case base.GoldRate24K <= 0:
		return Snapshot{}, fmt.Errorf("%w: goldRate24K must be greater than 0", ErrInvalidRate)
	case base.SilverRate999 <= 0:
		return Snapshot{}, fmt.Errorf("%w: silverRate999 must be greater than 0", ErrInvalidRate)
	case base.DiamondRatePerCarat <= 0:
		return Snapshot{}, fmt.Errorf("%w: diamondRatePerCarat must be greater than 0", ErrInvalidRate)
	case base.PlatinumRate950 < 0:
		return Snapshot{}, fmt.Errorf("%w: platinumRate950 must not be negative", ErrInvalidRate)
	}
	notes = strings.TrimSpace(notes)
	if len([]rune(notes)) > MaxNotesLength {
		return Snapshot{}, fmt.Errorf("%w: notes exceed %d characters", ErrInvalidRate, MaxNotesLength)
	}
	derived := DeriveFromBase(base.GoldRate24K, base.SilverRate999)
	return Snapshot{
		GoldRate24K:         base.GoldRate24K,
		GoldRate22K:         derived.Gold22K,
		GoldRate18K:         derived.Gold18K,
		GoldRate14K:         derived.Gold14K,
		SilverRate999:       base.SilverRate999,
		SilverRate925:       derived.Silver925,
		DiamondRatePerCarat: base.DiamondRatePerCarat,
		PlatinumRate950:     base.PlatinumRate950,
		UpdatedBy:           updatedBy,
		Notes:               notes,
		IsActive:            true,
		CreatedAt:           at.UTC(),
	}, nil
}

// HistoryPage is a newest-first slice of snapshots.
type HistoryPage struct {
	Items      []Snapshot        `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}
