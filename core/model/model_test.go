package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ledgersync/pkg/idset"
	"ledgersync/pkg/money"
)

func TestValidLabel(t *testing.T) {
	require.True(t, ValidLabel("coffee"))
	require.True(t, ValidLabel("coffee-shop-2"))
	require.False(t, ValidLabel(""))
	require.False(t, ValidLabel("-leading"))
	require.False(t, ValidLabel("Has Space"))
}

func TestTouchNeverMovesBackwards(t *testing.T) {
	now := time.Now()
	txn := Transaction{UpdatedAt: now}
	txn.Touch(now.Add(-time.Hour))
	require.Equal(t, now, txn.UpdatedAt)
	txn.Touch(now.Add(time.Hour))
	require.Equal(t, now.Add(time.Hour), txn.UpdatedAt)
}

func TestCheckPairInvariantsSymmetric(t *testing.T) {
	aID, bID := int64(1001), int64(1002)
	amtA, _ := money.Parse("-500.00", "AUD")
	amtB, _ := money.Parse("500.00", "AUD")
	a := Transaction{ID: aID, AccountID: 1, Amount: amtA, IsTransfer: true, PairedID: &bID}
	b := Transaction{ID: bID, AccountID: 2, Amount: amtB, IsTransfer: true, PairedID: &aID}
	require.NoError(t, CheckPairInvariants(a, b))

	b.PairedID = nil
	require.Error(t, CheckPairInvariants(a, b))
}

func TestCloneIsIndependent(t *testing.T) {
	id := int64(5)
	orig := Transaction{ID: 1, CategoryID: &id, Labels: idset.New("a", "b")}
	clone := orig.Clone()
	*clone.CategoryID = 99
	clone.Labels.Add("c")
	require.Equal(t, int64(5), *orig.CategoryID)
	require.Equal(t, 2, orig.Labels.Len())
}
