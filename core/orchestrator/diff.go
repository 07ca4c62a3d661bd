package orchestrator

import (
	"context"

	"ledgersync/core/compare"
	"ledgersync/core/localstore"
	"ledgersync/core/remoteclient"
	"ledgersync/core/resolver"
	"ledgersync/pkg/errkind"
)

// DiffOptions scopes a Diff workflow.
type DiffOptions struct {
	Window    Window
	ID        *int64
	Direction resolver.Direction // which strategy half to resolve against
}

// Diff runs the same fetch/compare pipeline as pull/push but emits no
// mutations: every intended change is reported, none are applied. The
// CLI layer renders the result in whichever of the four presentation
// modes the user asked for (summary, ids, changelog, diff).
func (o *Orchestrator) Diff(ctx context.Context, opts DiffOptions) (compare.Result, error) {
	if err := checkCancel(ctx); err != nil {
		return compare.Result{}, err
	}
	locals, err := o.Store.ListTransactions(localstore.ListOptions{Window: opts.Window.toLocal(), ID: opts.ID})
	if err != nil {
		return compare.Result{}, errkind.Wrap(errkind.Local, err, "list local transactions")
	}
	if err := checkCancel(ctx); err != nil {
		return compare.Result{}, err
	}
	remotes, err := o.Remote.ListTransactions(ctx, remoteclient.ListOptions{Window: opts.Window.toRemote(), ID: opts.ID})
	if err != nil {
		return compare.Result{}, err
	}
	return compare.Compare(locals, remotes, opts.Direction), nil
}
