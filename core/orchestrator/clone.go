package orchestrator

import (
	"context"

	"ledgersync/core/changelog"
	"ledgersync/core/model"
	"ledgersync/core/remoteclient"
	"ledgersync/pkg/errkind"
)

// CloneOptions scopes a Clone workflow.
type CloneOptions struct {
	Window Window
	DryRun bool
}

// Clone materializes the entire local archive from the remote in the
// configured date window, deriving account opening dates from the
// earliest observed transaction and logging a single CLONE header.
func (o *Orchestrator) Clone(ctx context.Context, opts CloneOptions) (*Report, error) {
	report := &Report{DryRun: opts.DryRun}

	err := o.withLock(func() error {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		txns, err := o.Remote.ListTransactions(ctx, remoteclient.ListOptions{Window: opts.Window.toRemote()})
		if err != nil {
			return err
		}
		accounts, err := o.Remote.ListAccounts(ctx)
		if err != nil {
			return err
		}
		categories, err := o.Remote.ListCategories(ctx)
		if err != nil {
			return err
		}
		if err := checkCancel(ctx); err != nil {
			return err
		}

		earliestByAccount := make(map[int64]bool)
		earliest := make(map[int64]model.Transaction)
		for _, t := range txns {
			if !earliestByAccount[t.AccountID] || t.Date.Before(earliest[t.AccountID].Date) {
				earliest[t.AccountID] = t
				earliestByAccount[t.AccountID] = true
			}
		}
		for i, a := range accounts {
			if e, ok := earliest[a.ID]; ok {
				accounts[i].OpeningDate = model.ResolveOpeningDate(a.OpeningDate, e.Date)
			}
		}

		if opts.DryRun {
			report.Mutations = append(report.Mutations, cloneIntents(accounts, categories, txns)...)
			return nil
		}

		for _, c := range categories {
			if err := o.Store.SaveCategory(c); err != nil {
				return errkind.Wrap(errkind.Local, err, "save category")
			}
		}
		for _, a := range accounts {
			if err := o.Store.SaveAccount(a); err != nil {
				return errkind.Wrap(errkind.Local, err, "save account")
			}
		}
		for _, t := range txns {
			if err := checkCancel(ctx); err != nil {
				return err
			}
			if err := o.Store.SaveTransaction(t); err != nil {
				return errkind.Wrap(errkind.Local, err, "save transaction")
			}
		}

		from, to := dateWindowFields(opts.Window)
		if err := o.Sink.AppendHeader(changelog.Clone, from, to); err != nil {
			return errkind.Wrap(errkind.Local, err, "append clone header")
		}
		report.HeaderWritten = true
		return nil
	})
	if err != nil {
		return report, err
	}
	return report, nil
}

func cloneIntents(accounts []model.Account, categories []model.Category, txns []model.Transaction) []MutationRecord {
	out := make([]MutationRecord, 0, len(accounts)+len(categories)+len(txns))
	for _, c := range categories {
		out = append(out, MutationRecord{TxnID: c.ID, Field: "category", New: c.Title, Side: "local"})
	}
	for _, a := range accounts {
		out = append(out, MutationRecord{TxnID: a.ID, Field: "account", New: a.DisplayName, Side: "local"})
	}
	for _, t := range txns {
		out = append(out, MutationRecord{TxnID: t.ID, Field: "transaction", New: t.Narration, Side: "local"})
	}
	return out
}
