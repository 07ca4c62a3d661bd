package compare

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ledgersync/core/model"
	"ledgersync/core/resolver"
	"ledgersync/pkg/money"
)

func amt(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.Parse(s, "AUD")
	require.NoError(t, err)
	return a
}

// S2 — immutable conflict: diff in summary mode counts 1 differing.
func TestCompareImmutableConflictCountsAsDiffers(t *testing.T) {
	locals := []model.Transaction{{ID: 1, Amount: amt(t, "-10.00")}}
	remotes := []model.Transaction{{ID: 1, Amount: amt(t, "-10.50")}}

	result := Compare(locals, remotes, resolver.Pull)
	require.Equal(t, 1, result.Summary.Differs)
	require.Equal(t, 0, result.Summary.Identical)
}

func TestCompareOnlyLocalOnlyRemote(t *testing.T) {
	locals := []model.Transaction{{ID: 1, Amount: amt(t, "1.00")}}
	remotes := []model.Transaction{{ID: 2, Amount: amt(t, "2.00")}}

	result := Compare(locals, remotes, resolver.Pull)
	require.Equal(t, 1, result.Summary.OnlyLocal)
	require.Equal(t, 1, result.Summary.OnlyRemote)
}

func TestCompareIdentical(t *testing.T) {
	txn := model.Transaction{ID: 1, Amount: amt(t, "1.00")}
	result := Compare([]model.Transaction{txn}, []model.Transaction{txn}, resolver.Pull)
	require.Equal(t, 1, result.Summary.Identical)
	require.Len(t, result.Comparisons[0].FieldDiffs, 0)
}

func TestCompareAscendingIDOrder(t *testing.T) {
	locals := []model.Transaction{{ID: 3}, {ID: 1}, {ID: 2}}
	result := Compare(locals, locals, resolver.Pull)
	var ids []int64
	for _, c := range result.Comparisons {
		ids = append(ids, c.ID)
	}
	require.Equal(t, []int64{1, 2, 3}, ids)
}
