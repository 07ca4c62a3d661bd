package orchestrator

import (
	"context"

	"ledgersync/core/changelog"
	"ledgersync/core/compare"
	"ledgersync/core/localstore"
	"ledgersync/core/remoteclient"
	"ledgersync/core/resolver"
	"ledgersync/pkg/errkind"
)

// PushOptions scopes a Push workflow.
type PushOptions struct {
	Window Window
	ID     *int64
	DryRun bool
}

// Push fetches the current remote counterpart for the working set
// (explicit id, or every local transaction in the window), resolves
// diffs with push-direction strategies, and applies mutations only to
// the remote — push never writes the local store.
func (o *Orchestrator) Push(ctx context.Context, opts PushOptions) (*Report, error) {
	report := &Report{DryRun: opts.DryRun}

	err := o.withLock(func() error {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		locals, err := o.Store.ListTransactions(localstore.ListOptions{Window: opts.Window.toLocal(), ID: opts.ID})
		if err != nil {
			return errkind.Wrap(errkind.Local, err, "list local transactions")
		}
		if err := checkCancel(ctx); err != nil {
			return err
		}
		remotes, err := o.Remote.ListTransactions(ctx, remoteclient.ListOptions{Window: opts.Window.toRemote(), ID: opts.ID})
		if err != nil {
			return err
		}

		result := compare.Compare(locals, remotes, resolver.Push)
		report.Identical, report.Differs = result.Summary.Identical, result.Summary.Differs
		report.OnlyLocal, report.OnlyRemote = result.Summary.OnlyLocal, result.Summary.OnlyRemote

		var buffered []appliedMutation
		patches := make(map[int64]map[string]any)
		mutationsApplied := 0

		for _, c := range result.Comparisons {
			if c.Status != compare.Differs {
				continue
			}
			if err := checkCancel(ctx); err != nil {
				return err
			}

			var remoteFields []string
			for _, fd := range c.FieldDiffs {
				if fd.Resolution.Remote == nil {
					continue // push applies mutations only to the remote
				}
				remoteFields = append(remoteFields, fd.Field)
				buffered = append(buffered, appliedMutation{c.ID, fd.Field, "remote", fd.Resolution.Remote.Old, fd.Resolution.Remote.New})
				report.Mutations = append(report.Mutations, MutationRecord{TxnID: c.ID, Field: fd.Field, Old: fd.Resolution.Remote.Old, New: fd.Resolution.Remote.New, Side: "remote"})
			}
			if len(remoteFields) == 0 {
				continue
			}
			mutationsApplied++
			if !opts.DryRun {
				mutatedRemote := *c.Remote
				for _, fd := range c.FieldDiffs {
					if fd.Resolution.Remote != nil {
						fd.Resolution.Remote.Apply(&mutatedRemote)
					}
				}
				patches[c.ID] = patchBody(mutatedRemote, remoteFields)
			}
		}

		if !opts.DryRun {
			if err := o.dispatchPatches(ctx, patches); err != nil {
				return err
			}
		}

		if opts.DryRun || mutationsApplied == 0 {
			return nil
		}

		from, to := dateWindowFields(opts.Window)
		if err := o.flushLog(changelog.Push, []string{from, to}, buffered); err != nil {
			return err
		}
		report.HeaderWritten = true
		return nil
	})
	if err != nil {
		return report, err
	}
	return report, nil
}
