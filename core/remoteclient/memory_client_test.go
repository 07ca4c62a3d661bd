package remoteclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ledgersync/core/model"
	"ledgersync/pkg/money"
)

func TestMemoryClientPatchTransaction(t *testing.T) {
	c := NewMemoryClient()
	amt, _ := money.Parse("-10.00", "AUD")
	c.Transactions[1] = model.Transaction{ID: 1, Amount: amt, Narration: "old"}

	cat := int64(7)
	err := c.PatchTransaction(context.Background(), 1, map[string]any{
		"category_id": &cat,
		"narration":   "new narration",
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), *c.Transactions[1].CategoryID)
	require.Equal(t, "new narration", c.Transactions[1].Narration)
	require.Len(t, c.Patches, 1)
}

func TestMemoryClientListFiltersByID(t *testing.T) {
	c := NewMemoryClient()
	c.Transactions[1] = model.Transaction{ID: 1}
	c.Transactions[2] = model.Transaction{ID: 2}
	id := int64(2)
	out, err := c.ListTransactions(context.Background(), ListOptions{ID: &id})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int64(2), out[0].ID)
}
