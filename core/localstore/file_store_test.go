package localstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ledgersync/core/model"
	"ledgersync/pkg/money"
)

func sampleTxn(id int64, date string) model.Transaction {
	amt, _ := money.Parse("-12.50", "AUD")
	return model.Transaction{
		ID: id, Date: mustDate(date), Amount: amt, AccountID: 1,
		Payee: "Cafe", Narration: "coffee", UpdatedAt: mustDate(date),
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestHierarchicalStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewHierarchicalStore(dir)
	require.NoError(t, store.Lock())
	defer store.Unlock()

	require.NoError(t, store.SaveAccount(model.Account{ID: 1, DisplayName: "Checking", Type: model.AccountAsset, Currency: "AUD", OpeningDate: mustDate("2025-01-01")}))
	require.NoError(t, store.SaveTransaction(sampleTxn(1, "2025-06-01")))
	require.NoError(t, store.SaveTransaction(sampleTxn(2, "2025-07-15")))

	reopened := NewHierarchicalStore(dir)
	txns, err := reopened.ListTransactions(ListOptions{})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	require.Equal(t, int64(1), txns[0].ID)

	accts, err := reopened.ListAccounts()
	require.NoError(t, err)
	require.Len(t, accts, 1)
	require.Equal(t, "Checking", accts[0].DisplayName)

	require.FileExists(t, filepath.Join(dir, "2025", "2025-06.jsonl"))
	require.FileExists(t, filepath.Join(dir, "2025", "2025-07.jsonl"))
	require.Equal(t, filepath.Join(dir, "primary.log"), store.ChangelogPath())
}

func TestSingleFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.json")
	store := NewSingleFileStore(path)
	require.NoError(t, store.Lock())
	defer store.Unlock()

	require.NoError(t, store.SaveTransaction(sampleTxn(1, "2025-03-10")))

	reopened := NewSingleFileStore(path)
	txns, err := reopened.ListTransactions(ListOptions{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, filepath.Join(filepath.Dir(path), "archive.log"), store.ChangelogPath())
}

func TestFileStoreLockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first := NewHierarchicalStore(dir)
	require.NoError(t, first.Lock())
	defer first.Unlock()

	second := NewHierarchicalStore(dir)
	require.Error(t, second.Lock())
}
