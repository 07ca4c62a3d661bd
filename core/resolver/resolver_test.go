package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ledgersync/core/model"
	"ledgersync/pkg/idset"
	"ledgersync/pkg/money"
)

func mustAmount(t *testing.T, s, cur string) money.Amount {
	t.Helper()
	a, err := money.Parse(s, cur)
	require.NoError(t, err)
	return a
}

// S1 — label merge (strategy Merge-set).
func TestMergeSetLabelMerge(t *testing.T) {
	local := model.Transaction{Labels: idset.New("coffee")}
	remote := model.Transaction{Labels: idset.New("coffee", "morning")}

	res := Resolve(Fields["labels"], local, remote, Pull)
	require.Equal(t, DiagMerged, res.Diagnostic)
	require.NotNil(t, res.Local)
	require.Nil(t, res.Remote)

	mutated := local
	res.Local.Apply(&mutated)
	require.True(t, setEqualFold(mutated.Labels, idset.New("coffee", "morning")))

	// Push direction: local already a subset of remote's union, so no
	// remote mutation should be emitted (union already equals remote).
	pushRes := Resolve(Fields["labels"], local, remote, Push)
	require.Nil(t, pushRes.Remote)
}

// S2 — immutable conflict.
func TestImmutableConflictNoMutation(t *testing.T) {
	local := model.Transaction{Amount: mustAmount(t, "-10.00", "AUD")}
	remote := model.Transaction{Amount: mustAmount(t, "-10.50", "AUD")}

	res := Resolve(Fields["amount"], local, remote, Pull)
	require.Equal(t, DiagConflictWarning, res.Diagnostic)
	require.Nil(t, res.Local)
	require.Nil(t, res.Remote)
}

// S6 — push with category local-wins.
func TestCategoryPushLocalWins(t *testing.T) {
	groceries := int64(2)
	uncategorized := int64(1)
	now := time.Now()
	local := model.Transaction{CategoryID: &groceries, UpdatedAt: now}
	remote := model.Transaction{CategoryID: &uncategorized, UpdatedAt: now}

	res := Resolve(Fields["category_id"], local, remote, Push)
	require.Equal(t, DiagAppliedRemote, res.Diagnostic)
	require.NotNil(t, res.Remote)
	require.Nil(t, res.Local)
	require.Equal(t, "1", res.Remote.Old)
	require.Equal(t, "2", res.Remote.New)

	// Pull direction for the same field is remote-wins.
	pullRes := Resolve(Fields["category_id"], local, remote, Pull)
	require.Equal(t, DiagAppliedLocal, pullRes.Diagnostic)
	require.NotNil(t, pullRes.Local)
}

func TestResolverIsPure(t *testing.T) {
	local := model.Transaction{Labels: idset.New("a")}
	remote := model.Transaction{Labels: idset.New("a", "b")}
	r1 := Resolve(Fields["labels"], local, remote, Pull)
	r2 := Resolve(Fields["labels"], local, remote, Pull)
	require.Equal(t, r1.Diagnostic, r2.Diagnostic)
	require.Equal(t, r1.Local != nil, r2.Local != nil)
}
