package rates

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeriveFromBaseGold(t *testing.T) {
	derived := DeriveFromBase(6000, 75)
	require.Equal(t, 5496.0, derived.Gold22K)
	require.Equal(t, 4500.0, derived.Gold18K)
	require.Equal(t, 3498.0, derived.Gold14K)
	require.Equal(t, 69.38, derived.Silver925)
}

func TestDeriveFromBaseRoundsEachFactorIndependently(t *testing.T) {
	derived := DeriveFromBase(6543.21, 81.17)
	// 6543.21 x 0.916 = 5993.58036
	require.Equal(t, 5993.58, derived.Gold22K)
	// 6543.21 x 0.750 = 4907.4075
	require.Equal(t, 4907.41, derived.Gold18K)
	// 6543.21 x 0.583 = 3814.69143
	require.Equal(t, 3814.69, derived.Gold14K)
	// 81.17 x 0.925 = 75.08225
	require.Equal(t, 75.08, derived.Silver925)
}

func TestNewSnapshotDerivesAndActivates(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("IST", 19800))
	snap, err := NewSnapshot(BaseRates{GoldRate24K: 6000, SilverRate999: 75, DiamondRatePerCarat: 50000}, "admin", "  opening rates ", at)
	require.NoError(t, err)
	require.True(t, snap.IsActive)
	require.Equal(t, 5496.0, snap.GoldRate22K)
	require.Equal(t, 69.38, snap.SilverRate925)
	require.Zero(t, snap.PlatinumRate950)
	require.Equal(t, "opening rates", snap.Notes)
	require.Equal(t, time.UTC, snap.CreatedAt.Location())
}

func TestNewSnapshotRejectsInvalidRates(t *testing.T) {
	cases := map[string]BaseRates{
		"gold":     {GoldRate24K: 0, SilverRate999: 75, DiamondRatePerCarat: 1},
		"silver":   {GoldRate24K: 1, SilverRate999: -1, DiamondRatePerCarat: 1},
		"diamond":  {GoldRate24K: 1, SilverRate999: 1},
		"platinum": {GoldRate24K: 1, SilverRate999: 1, DiamondRatePerCarat: 1, PlatinumRate950: -5},
	}
	for name, base := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewSnapshot(base, "admin", "", time.Now())
			require.True(t, errors.Is(err, ErrInvalidRate), "got %v", err)
		})
	}
}

func TestNewSnapshotRejectsLongNotes(t *testing.T) {
	_, err := NewSnapshot(BaseRates{GoldRate24K: 1, SilverRate999: 1, DiamondRatePerCarat: 1}, "admin", strings.Repeat("n", MaxNotesLength+1), time.Now())
	require.ErrorIs(t, err, ErrInvalidRate)
}
