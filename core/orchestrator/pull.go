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

// PullOptions scopes a Pull workflow.
type PullOptions struct {
	Window Window
	ID     *int64
	DryRun bool
}

// Pull fetches remote transactions updated since the last watermark
// (or the full window/id scope if given), resolves diffs with
// pull-direction strategies, applies local mutations and remote
// write-backs, and advances the watermark only if every mutation
// succeeded.
func (o *Orchestrator) Pull(ctx context.Context, opts PullOptions) (*Report, error) {
	report := &Report{DryRun: opts.DryRun}

	err := o.withLock(func() error {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		watermark, hasWatermark, err := o.Sink.Watermark()
		if err != nil {
			return errkind.Wrap(errkind.Local, err, "resolve watermark")
		}

		remoteOpts := remoteclient.ListOptions{Window: opts.Window.toRemote(), ID: opts.ID}
		if hasWatermark {
			remoteOpts.UpdatedSince = &watermark
		}
		remotes, err := o.Remote.ListTransactions(ctx, remoteOpts)
		if err != nil {
			return err
		}
		if err := checkCancel(ctx); err != nil {
			return err
		}
		locals, err := o.Store.ListTransactions(localstore.ListOptions{Window: opts.Window.toLocal(), ID: opts.ID})
		if err != nil {
			return errkind.Wrap(errkind.Local, err, "list local transactions")
		}

		result := compare.Compare(locals, remotes, resolver.Pull)
		report.Identical, report.Differs = result.Summary.Identical, result.Summary.Differs
		report.OnlyLocal, report.OnlyRemote = result.Summary.OnlyLocal, result.Summary.OnlyRemote

		var buffered []appliedMutation
		patches := make(map[int64]map[string]any)
		mutationsApplied := 0

		for _, c := range result.Comparisons {
			if c.Status == compare.OnlyRemote {
				mutationsApplied++
				report.Mutations = append(report.Mutations, MutationRecord{TxnID: c.ID, Field: "transaction", New: c.Remote.Narration, Side: "local"})
				if opts.DryRun {
					continue
				}
				if o.Log != nil {
					o.Log.WithField("id", c.ID).Info("pull: creating remote-only transaction locally")
				}
				if err := o.Store.SaveTransaction(*c.Remote); err != nil {
					return errkind.Wrap(errkind.Local, err, "save pulled transaction")
				}
				continue
			}
			if c.Status != compare.Differs {
				continue
			}
			if err := checkCancel(ctx); err != nil {
				return err
			}

			var localMuts []*resolver.Mutation
			var remoteFields []string
			for _, fd := range c.FieldDiffs {
				if fd.Resolution.Local != nil {
					localMuts = append(localMuts, fd.Resolution.Local)
					buffered = append(buffered, appliedMutation{c.ID, fd.Field, "local", fd.Resolution.Local.Old, fd.Resolution.Local.New})
					report.Mutations = append(report.Mutations, MutationRecord{TxnID: c.ID, Field: fd.Field, Old: fd.Resolution.Local.Old, New: fd.Resolution.Local.New, Side: "local"})
				}
				if fd.Resolution.Remote != nil {
					remoteFields = append(remoteFields, fd.Field)
					buffered = append(buffered, appliedMutation{c.ID, fd.Field, "remote", fd.Resolution.Remote.Old, fd.Resolution.Remote.New})
					report.Mutations = append(report.Mutations, MutationRecord{TxnID: c.ID, Field: fd.Field, Old: fd.Resolution.Remote.Old, New: fd.Resolution.Remote.New, Side: "remote"})
				}
			}

			if len(localMuts) > 0 {
				mutationsApplied++
				if !opts.DryRun {
					updated := applyFieldMutations(*c.Local, localMuts)
					updated.Touch(o.now())
					if err := o.Store.SaveTransaction(updated); err != nil {
						return errkind.Wrap(errkind.Local, err, "save pulled transaction")
					}
				}
			}
			if len(remoteFields) > 0 {
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
		since := ""
		if hasWatermark {
			since = watermark.Format("2006-01-02 15:04:05")
		}
		if err := o.flushLog(changelog.Pull, []string{since, from, to}, buffered); err != nil {
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
