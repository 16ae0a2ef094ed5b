package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRound2HalfUp(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{69.375, 69.38},
		{5496.0, 5496},
		{1.005, 1.01},
		{2.004, 2.0},
		{0, 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Round2(tc.in), "round %v", tc.in)
	}
}

func TestFactorAvoidsBinaryDrift(t *testing.T) {
	require.Equal(t, 69.38, Factor(75, decimal.RequireFromString("0.925")))
	require.Equal(t, 5496.0, Factor(6000, decimal.RequireFromString("0.916")))
	require.Equal(t, 3498.0, Factor(6000, decimal.RequireFromString("0.583")))
}

func TestMulRound2AndAdd(t *testing.T) {
	require.Equal(t, 57708.0, MulRound2(10.5, 5496))
	require.Equal(t, 10.5, Add(10, 0.5))
	require.Equal(t, 0.3, Add(0.1, 0.2))
}
