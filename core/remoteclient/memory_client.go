package remoteclient

import (
	"context"
	"fmt"
	"sort"

	"ledgersync/core/model"
	"ledgersync/pkg/idset"
)

func newLabelSet(items []string) idset.Set[string] { return idset.New(items...) }

// MemoryClient is an in-memory Client used by tests and by the clone/
// pull/push workflows' unit tests: it holds a fixed transaction/account/
// category set and applies PatchTransaction mutations in place.
type MemoryClient struct {
	Transactions map[int64]model.Transaction
	Accounts     []model.Account
	Categories   []model.Category
	Patches      []PatchCall // recorded for assertions
}

// PatchCall records one PatchTransaction invocation.
type PatchCall struct {
	ID     int64
	Fields map[string]any
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{Transactions: make(map[int64]model.Transaction)}
}

func (c *MemoryClient) ListTransactions(_ context.Context, opts ListOptions) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, t := range c.Transactions {
		if opts.ID != nil && t.ID != *opts.ID {
			continue
		}
		if opts.UpdatedSince != nil && !t.UpdatedAt.After(*opts.UpdatedSince) {
			continue
		}
		if !opts.Window.From.IsZero() && t.Date.Before(opts.Window.From) {
			continue
		}
		if !opts.Window.To.IsZero() && t.Date.After(opts.Window.To) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *MemoryClient) ListAccounts(context.Context) ([]model.Account, error)     { return c.Accounts, nil }
func (c *MemoryClient) ListCategories(context.Context) ([]model.Category, error) { return c.Categories, nil }

func (c *MemoryClient) PatchTransaction(_ context.Context, id int64, fields map[string]any) error {
	t, ok := c.Transactions[id]
	if !ok {
		return fmt.Errorf("transaction %d not found on remote", id)
	}
	for field, v := range fields {
		if err := applyPatchField(&t, field, v); err != nil {
			return err
		}
	}
	c.Transactions[id] = t
	c.Patches = append(c.Patches, PatchCall{ID: id, Fields: fields})
	return nil
}

func applyPatchField(t *model.Transaction, field string, v any) error {
	switch field {
	case "category_id":
		if v == nil {
			t.CategoryID = nil
			return nil
		}
		id, ok := v.(*int64)
		if !ok {
			return fmt.Errorf("category_id: unexpected type %T", v)
		}
		t.CategoryID = id
	case "needs_review":
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("needs_review: unexpected type %T", v)
		}
		t.NeedsReview = b
	case "narration":
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("narration: unexpected type %T", v)
		}
		t.Narration = s
	case "payee":
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("payee: unexpected type %T", v)
		}
		t.Payee = s
	case "is_transfer":
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("is_transfer: unexpected type %T", v)
		}
		t.IsTransfer = b
	case "paired_id":
		if v == nil {
			t.PairedID = nil
			return nil
		}
		id, ok := v.(*int64)
		if !ok {
			return fmt.Errorf("paired_id: unexpected type %T", v)
		}
		t.PairedID = id
	case "suspect_reason":
		if v == nil {
			t.SuspectReason = nil
			return nil
		}
		s, ok := v.(*string)
		if !ok {
			return fmt.Errorf("suspect_reason: unexpected type %T", v)
		}
		t.SuspectReason = s
	case "labels":
		ss, ok := v.([]string)
		if !ok {
			return fmt.Errorf("labels: unexpected type %T", v)
		}
		t.Labels = newLabelSet(ss)
	default:
		return fmt.Errorf("unsupported patch field %q", field)
	}
	return nil
}
