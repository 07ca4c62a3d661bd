package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAmountEqual(t *testing.T) {
	a, err := Parse("-10.00", "aud")
	require.NoError(t, err)
	b, err := Parse("-10.0", "AUD")
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}

func TestWithinPercent(t *testing.T) {
	a, _ := Parse("-100.00", "USD")
	b, _ := Parse("-97.50", "USD")
	require.True(t, WithinPercent(a, b, decimal.NewFromInt(5)))

	c, _ := Parse("-90.00", "USD")
	require.False(t, WithinPercent(a, c, decimal.NewFromInt(5)))
}

func TestWithinToleranceExact(t *testing.T) {
	a, _ := Parse("500.00", "AUD")
	b, _ := Parse("-500.00", "AUD")
	require.True(t, WithinTolerance(a, b, decimal.Zero))
}
