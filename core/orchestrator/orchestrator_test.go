package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ledgersync/core/changelog"
	"ledgersync/core/localstore"
	"ledgersync/core/model"
	"ledgersync/core/remoteclient"
	"ledgersync/pkg/money"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func amt(t *testing.T, s string) money.Amount {
	a, err := money.Parse(s, "AUD")
	require.NoError(t, err)
	return a
}

func TestCloneMaterializesArchive(t *testing.T) {
	store := localstore.NewMemoryStore()
	remote := remoteclient.NewMemoryClient()
	remote.Accounts = []model.Account{{ID: 1, DisplayName: "Checking", Currency: "AUD", OpeningDate: mustDate(t, "2025-01-01")}}
	remote.Transactions[1] = model.Transaction{ID: 1, AccountID: 1, Amount: amt(t, "-5.00"), Date: mustDate(t, "2025-02-01"), UpdatedAt: mustDate(t, "2025-02-01")}
	sink := changelog.NewMemorySink(fixedClock(mustDate(t, "2025-03-01")))

	o := New(store, remote, sink, nil)
	report, err := o.Clone(context.Background(), CloneOptions{})
	require.NoError(t, err)
	require.True(t, report.HeaderWritten)

	txns, err := store.ListTransactions(localstore.ListOptions{})
	require.NoError(t, err)
	require.Len(t, txns, 1)

	wm, ok, err := sink.Watermark()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, mustDate(t, "2025-03-01"), wm)
}

func TestPullAppliesLocalWinsWritebackAndAdvancesWatermark(t *testing.T) {
	store := localstore.NewMemoryStore()
	remote := remoteclient.NewMemoryClient()

	updated := mustDate(t, "2025-01-01")
	local := model.Transaction{ID: 1, AccountID: 1, Amount: amt(t, "-5.00"), Date: mustDate(t, "2025-02-01"), Narration: "Corrected", UpdatedAt: updated}
	store.Transactions[1] = local
	remote.Transactions[1] = model.Transaction{ID: 1, AccountID: 1, Amount: amt(t, "-5.00"), Date: mustDate(t, "2025-02-01"), Narration: "Raw Merchant Feed", UpdatedAt: updated}

	sink := changelog.NewMemorySink(fixedClock(mustDate(t, "2025-03-01")))
	o := New(store, remote, sink, nil)
	o.Clock = fixedClock(mustDate(t, "2025-03-01"))

	report, err := o.Pull(context.Background(), PullOptions{})
	require.NoError(t, err)
	require.True(t, report.HeaderWritten)

	require.Equal(t, "Corrected", remote.Transactions[1].Narration)
	require.Len(t, remote.Patches, 1)

	wm, ok, err := sink.Watermark()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, mustDate(t, "2025-03-01"), wm)
}

func TestPullDryRunLeavesStoreAndChangelogUntouched(t *testing.T) {
	store := localstore.NewMemoryStore()
	remote := remoteclient.NewMemoryClient()
	updated := mustDate(t, "2025-01-01")
	store.Transactions[1] = model.Transaction{ID: 1, AccountID: 1, Amount: amt(t, "-5.00"), Date: mustDate(t, "2025-02-01"), Narration: "Corrected", UpdatedAt: updated}
	remote.Transactions[1] = model.Transaction{ID: 1, AccountID: 1, Amount: amt(t, "-5.00"), Date: mustDate(t, "2025-02-01"), Narration: "Raw", UpdatedAt: updated}

	sink := changelog.NewMemorySink(fixedClock(mustDate(t, "2025-03-01")))
	o := New(store, remote, sink, nil)

	report, err := o.Pull(context.Background(), PullOptions{DryRun: true})
	require.NoError(t, err)
	require.False(t, report.HeaderWritten)
	require.NotEmpty(t, report.Mutations)

	require.Equal(t, "Raw", remote.Transactions[1].Narration)
	require.Empty(t, remote.Patches)
	require.Empty(t, sink.Lines)
}

func TestPushOnlyMutatesRemote(t *testing.T) {
	store := localstore.NewMemoryStore()
	remote := remoteclient.NewMemoryClient()
	updated := mustDate(t, "2025-01-01")
	cat := int64(5)
	store.Transactions[1] = model.Transaction{ID: 1, AccountID: 1, Amount: amt(t, "-5.00"), Date: mustDate(t, "2025-02-01"), CategoryID: &cat, UpdatedAt: updated}
	remote.Transactions[1] = model.Transaction{ID: 1, AccountID: 1, Amount: amt(t, "-5.00"), Date: mustDate(t, "2025-02-01"), UpdatedAt: updated}

	sink := changelog.NewMemorySink(fixedClock(mustDate(t, "2025-03-01")))
	o := New(store, remote, sink, nil)

	report, err := o.Push(context.Background(), PushOptions{})
	require.NoError(t, err)
	require.True(t, report.HeaderWritten)
	require.NotNil(t, remote.Transactions[1].CategoryID)
	require.Equal(t, int64(5), *remote.Transactions[1].CategoryID)

	stored, err := store.ListTransactions(localstore.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, &cat, stored[0].CategoryID) // push never writes the local store
}

func TestDiffEmitsNoMutations(t *testing.T) {
	store := localstore.NewMemoryStore()
	remote := remoteclient.NewMemoryClient()
	updated := mustDate(t, "2025-01-01")
	store.Transactions[1] = model.Transaction{ID: 1, AccountID: 1, Amount: amt(t, "-5.00"), Date: mustDate(t, "2025-02-01"), Narration: "A", UpdatedAt: updated}
	remote.Transactions[1] = model.Transaction{ID: 1, AccountID: 1, Amount: amt(t, "-5.00"), Date: mustDate(t, "2025-02-01"), Narration: "B", UpdatedAt: updated}

	o := New(store, remote, changelog.NewMemorySink(nil), nil)
	result, err := o.Diff(context.Background(), DiffOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Summary.Differs)

	stillA, err := store.ListTransactions(localstore.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, "A", stillA[0].Narration)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}
