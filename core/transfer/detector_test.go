package transfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ledgersync/core/model"
	"ledgersync/pkg/money"
)

func txn(id int64, accountID int64, amount string, date string, payee string) model.Transaction {
	amt, _ := money.Parse(amount, "AUD")
	d, _ := time.Parse("2006-01-02", date)
	return model.Transaction{ID: id, AccountID: accountID, Amount: amt, Date: d, Payee: payee}
}

func accounts(fx ...int64) map[int64]model.Account {
	fxSet := make(map[int64]bool, len(fx))
	for _, id := range fx {
		fxSet[id] = true
	}
	out := map[int64]model.Account{
		1: {ID: 1, FXEnabled: fxSet[1]},
		2: {ID: 2, FXEnabled: fxSet[2]},
	}
	return out
}

func newCats(t *testing.T) *model.CategoryForest {
	f, err := model.NewCategoryForest([]model.Category{{ID: 9, Title: "Transfers"}})
	require.NoError(t, err)
	return f
}

func TestDetectConfirmedExactOppositePair(t *testing.T) {
	txns := []model.Transaction{
		txn(1, 1, "-100.00", "2025-06-01", "Internal transfer"),
		txn(2, 2, "100.00", "2025-06-02", "Internal transfer"),
	}
	d, err := NewDetector(DefaultConfig("Transfers"), accounts())
	require.NoError(t, err)
	pairs, _ := d.Detect(txns)
	require.Len(t, pairs, 1)
	require.True(t, pairs[0].Confirmed)

	a, b, err := d.Apply(pairs[0], newCats(t))
	require.NoError(t, err)
	require.True(t, a.IsTransfer)
	require.True(t, b.IsTransfer)
	require.Equal(t, b.ID, *a.PairedID)
	require.Equal(t, a.ID, *b.PairedID)
	require.Equal(t, int64(9), *a.CategoryID)
	require.Equal(t, int64(9), *b.CategoryID)
	require.NoError(t, model.CheckPairInvariants(a, b))
}

func TestDetectSuspectedSameDirection(t *testing.T) {
	txns := []model.Transaction{
		txn(1, 1, "-100.00", "2025-06-01", "Acme Store"),
		txn(2, 2, "-100.00", "2025-06-01", "Acme Store"),
	}
	d, err := NewDetector(DefaultConfig("Transfers"), accounts())
	require.NoError(t, err)
	pairs, _ := d.Detect(txns)
	require.Len(t, pairs, 1)
	require.False(t, pairs[0].Confirmed)
	require.Contains(t, pairs[0].Reasons, ReasonSameDirection)

	a, b, err := d.Apply(pairs[0], newCats(t))
	require.NoError(t, err)
	require.False(t, a.IsTransfer)
	require.NotNil(t, a.SuspectReason)
	require.Contains(t, *a.SuspectReason, "same-direction")
}

func TestDetectSuspectedDateDelay(t *testing.T) {
	txns := []model.Transaction{
		txn(1, 1, "-50.00", "2025-06-01", "x"),
		txn(2, 2, "50.00", "2025-06-04", "x"),
	}
	d, err := NewDetector(DefaultConfig("Transfers"), accounts())
	require.NoError(t, err)
	pairs, _ := d.Detect(txns)
	require.Len(t, pairs, 1)
	require.False(t, pairs[0].Confirmed)
	found := false
	for _, r := range pairs[0].Reasons {
		if r == "date-delay-3d" {
			found = true
		}
	}
	require.True(t, found)
}

func TestDetectNoMatchSameAccount(t *testing.T) {
	txns := []model.Transaction{
		txn(1, 1, "-50.00", "2025-06-01", "x"),
		txn(2, 1, "50.00", "2025-06-01", "x"),
	}
	d, err := NewDetector(DefaultConfig("Transfers"), accounts())
	require.NoError(t, err)
	pairs, _ := d.Detect(txns)
	require.Empty(t, pairs)
}

func TestDetectIdempotentSkipsAlreadyPaired(t *testing.T) {
	pairedID1, pairedID2 := int64(2), int64(1)
	a := txn(1, 1, "-100.00", "2025-06-01", "x")
	a.IsTransfer = true
	a.PairedID = &pairedID1
	b := txn(2, 2, "100.00", "2025-06-01", "x")
	b.IsTransfer = true
	b.PairedID = &pairedID2

	d, err := NewDetector(DefaultConfig("Transfers"), accounts())
	require.NoError(t, err)
	pairs, _ := d.Detect([]model.Transaction{a, b})
	require.Empty(t, pairs)
}

func TestDetectGreedySmallestDeltaWins(t *testing.T) {
	txns := []model.Transaction{
		txn(1, 1, "-100.00", "2025-06-01", "x"),
		txn(2, 2, "100.00", "2025-06-02", "x"), // Δ=1
		txn(3, 2, "100.00", "2025-06-01", "x"), // Δ=0, should win
	}
	d, err := NewDetector(DefaultConfig("Transfers"), accounts())
	require.NoError(t, err)
	pairs, _ := d.Detect(txns)
	require.Len(t, pairs, 1)
	require.Equal(t, int64(3), pairs[0].B.ID)
}
