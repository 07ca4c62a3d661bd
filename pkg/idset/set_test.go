package idset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnionDedup(t *testing.T) {
	a := New("coffee")
	b := New("coffee", "morning")
	u := Union(a, b)
	require.Equal(t, 2, u.Len())
	require.ElementsMatch(t, []string{"coffee", "morning"}, SortedStrings(u))
}

func TestEqualIgnoresOrder(t *testing.T) {
	a := New("x", "y")
	b := New("y", "x")
	require.True(t, Equal(a, b))
}

func TestSortedStringsStable(t *testing.T) {
	s := New("zeta", "alpha", "mid")
	require.Equal(t, []string{"alpha", "mid", "zeta"}, SortedStrings(s))
}
