// Package orchestrator drives the clone/pull/push/diff workflows,
// sequencing fetch, compare, resolve, mutate, and log against the local
// store and remote client interfaces, honouring the single-writer lock
// and dry-run suppression of writes described in the concurrency design.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ledgersync/core/changelog"
	"ledgersync/core/localstore"
	"ledgersync/core/model"
	"ledgersync/core/remoteclient"
	"ledgersync/core/resolver"
	"ledgersync/pkg/errkind"
)

// Orchestrator wires the local store, remote client, and changelog sink
// together and drives the reconciliation workflows over them.
type Orchestrator struct {
	Store       localstore.Store
	Remote      remoteclient.Client
	Sink        changelog.Sink
	Log         *logrus.Logger
	Clock       func() time.Time
	Concurrency int // bounds parallel PATCH dispatch during push; default 4
}

// New builds an Orchestrator with sensible defaults for Clock and
// Concurrency.
func New(store localstore.Store, remote remoteclient.Client, sink changelog.Sink, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{Store: store, Remote: remote, Sink: sink, Log: log, Clock: time.Now, Concurrency: 4}
}

// Window scopes a workflow to a calendar date range; a zero Window is
// unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) toRemote() remoteclient.Window { return remoteclient.Window{From: w.From, To: w.To} }
func (w Window) toLocal() localstore.Window     { return localstore.Window{From: w.From, To: w.To} }

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// withLock acquires the store's single-writer lock for the duration of
// fn, releasing it on every exit path including panics propagating past
// fn (Unlock runs via defer regardless of how fn returns).
func (o *Orchestrator) withLock(fn func() error) error {
	if err := o.Store.Lock(); err != nil {
		return errkind.Wrap(errkind.Local, err, "acquire archive lock")
	}
	defer o.Store.Unlock()
	return fn()
}

// checkCancel returns an Interrupt-kind error if ctx has been canceled;
// called at every I/O boundary per the cancellation design.
func checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errkind.Wrap(errkind.Interrupt, err, "workflow interrupted")
	}
	return nil
}

// appliedMutation pairs a resolved Mutation with the side it targets,
// for buffering until the workflow decides whether to commit its log
// header.
type appliedMutation struct {
	txnID int64
	field string
	side  string
	old   string
	new   string
}

// applyFieldMutations applies every non-nil Mutation in muts (in
// FieldOrder, already guaranteed by the caller) onto a clone of base,
// returning the mutated copy. A nil slice returns base unchanged.
func applyFieldMutations(base model.Transaction, muts []*resolver.Mutation) model.Transaction {
	cp := base.Clone()
	for _, m := range muts {
		if m != nil {
			m.Apply(&cp)
		}
	}
	return cp
}

// patchBody builds the remote PATCH field map from a set of resolved
// remote-side field names applied onto a mutated copy of the current
// remote transaction.
func patchBody(mutated model.Transaction, fields []string) map[string]any {
	body := make(map[string]any, len(fields))
	for _, f := range fields {
		body[f] = resolver.Fields[f].Get(mutated)
	}
	return body
}

// dispatchPatches sends one PatchTransaction call per entry in patches,
// bounded by Concurrency via errgroup, per the concurrency design's
// parallel PATCH dispatch.
func (o *Orchestrator) dispatchPatches(ctx context.Context, patches map[int64]map[string]any) error {
	if len(patches) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency())
	for id, body := range patches {
		id, body := id, body
		g.Go(func() error {
			if err := checkCancel(gctx); err != nil {
				return err
			}
			if err := o.Remote.PatchTransaction(gctx, id, body); err != nil {
				return errkind.Wrap(errkind.Remote, err, fmt.Sprintf("patch transaction %d", id))
			}
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) concurrency() int {
	if o.Concurrency <= 0 {
		return 4
	}
	return o.Concurrency
}

// flushLog commits a workflow's buffered entries: the header (which
// doubles as the watermark marker for CLONE/PULL) followed by every
// UPDATE entry in order. Called only when the caller has decided the
// workflow earned a header per its completion rule; a dry-run or
// zero-mutation workflow never calls this.
func (o *Orchestrator) flushLog(header changelog.Kind, headerFields []string, muts []appliedMutation) error {
	if err := o.Sink.AppendHeader(header, headerFields...); err != nil {
		return errkind.Wrap(errkind.Local, err, "append changelog header")
	}
	for _, m := range muts {
		if err := o.Sink.AppendUpdate(m.txnID, m.field, m.old, m.new); err != nil {
			return errkind.Wrap(errkind.Local, err, "append changelog update")
		}
	}
	return nil
}

func dateWindowFields(w Window) (from, to string) {
	if !w.From.IsZero() {
		from = w.From.Format("2006-01-02")
	}
	if !w.To.IsZero() {
		to = w.To.Format("2006-01-02")
	}
	return from, to
}
