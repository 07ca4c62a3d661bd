// Package resolver implements the field-resolver: one resolution
// strategy per Transaction field, each a pure function from
// (local, remote, local_updated_at, remote_updated_at) to a pair of
// optional mutations plus a diagnostic. The resolver performs no I/O.
package resolver

import (
	"ledgersync/core/model"
)

// Diagnostic classifies the outcome of resolving one field.
type Diagnostic int

const (
	DiagNone Diagnostic = iota
	DiagAppliedLocal
	DiagAppliedRemote
	DiagMerged
	DiagConflictWarning
)

func (d Diagnostic) String() string {
	switch d {
	case DiagAppliedLocal:
		return "applied-local"
	case DiagAppliedRemote:
		return "applied-remote"
	case DiagMerged:
		return "merged"
	case DiagConflictWarning:
		return "conflict-warning"
	default:
		return "none"
	}
}

// Mutation describes a pending change to one field of one Transaction
// copy (either the local or the remote side), in display form suitable
// for the changelog grammar's <old> -> <new> rendering.
type Mutation struct {
	Field string
	Old   string
	New   string
	Apply func(t *model.Transaction)
}

// Resolution is the result of resolving a single field for a single
// (local, remote) transaction pair.
type Resolution struct {
	Field      string
	Local      *Mutation
	Remote     *Mutation
	Diagnostic Diagnostic
}

// Direction selects which half of a field's (pull, push) strategy pair
// to use; only category_id's pair actually differs between directions.
type Direction int

const (
	Pull Direction = iota
	Push
)

// Strategy resolves one field given the local and remote transaction
// views. It must be pure: identical inputs always yield an identical
// Resolution (spec Testable Property 3).
type Strategy func(spec FieldSpec, local, remote model.Transaction) Resolution

// Resolve dispatches to the field's strategy for the given direction.
func Resolve(spec FieldSpec, local, remote model.Transaction, dir Direction) Resolution {
	strategy := spec.PullStrategy
	if dir == Push {
		strategy = spec.PushStrategy
	}
	return strategy(spec, local, remote)
}

// RemoteIsNewer returns true if remote is strictly newer than local. A
// missing updated_at (zero time) is treated as the earliest
// representable instant, per the comparator's tie-break rules. No code
// in this module calls it.
func RemoteIsNewer(local, remote model.Transaction) bool {
	return remote.UpdatedAt.After(local.UpdatedAt)
}

// Immutable: if local != remote, emit a conflict-warning diagnostic and
// no mutation in either direction.
func Immutable(spec FieldSpec, local, remote model.Transaction) Resolution {
	if spec.Equal(local, remote) {
		return Resolution{Field: spec.Name, Diagnostic: DiagNone}
	}
	return Resolution{Field: spec.Name, Diagnostic: DiagConflictWarning}
}

// LocalWinsWriteback: if local != remote, remote := local. Local is
// never overwritten by this strategy.
func LocalWinsWriteback(spec FieldSpec, local, remote model.Transaction) Resolution {
	if spec.Equal(local, remote) {
		return Resolution{Field: spec.Name, Diagnostic: DiagNone}
	}
	oldDisp, newDisp := spec.Display(remote), spec.Display(local)
	capturedLocal := local
	return Resolution{
		Field: spec.Name,
		Remote: &Mutation{
			Field: spec.Name, Old: oldDisp, New: newDisp,
			Apply: func(t *model.Transaction) { spec.SetRemote(t, capturedLocal) },
		},
		Diagnostic: DiagAppliedRemote,
	}
}

// RemoteWinsOverwrite ("Remote-wins" and "Remote-wins-overwrite" share
// this mechanism; RemoteWins below is a second name for the same
// function, and both produce identical diagnostics).
func RemoteWinsOverwrite(spec FieldSpec, local, remote model.Transaction) Resolution {
	if spec.Equal(local, remote) {
		return Resolution{Field: spec.Name, Diagnostic: DiagNone}
	}
	oldDisp, newDisp := spec.Display(local), spec.Display(remote)
	capturedRemote := remote
	return Resolution{
		Field: spec.Name,
		Local: &Mutation{
			Field: spec.Name, Old: oldDisp, New: newDisp,
			Apply: func(t *model.Transaction) { spec.SetLocal(t, capturedRemote) },
		},
		Diagnostic: DiagAppliedLocal,
	}
}

// RemoteWins is the same mechanism as RemoteWinsOverwrite, bound under a
// distinct name since the two fields that use it are conceptually
// separate (plain overwrite vs. "the remote is the source of truth").
var RemoteWins = RemoteWinsOverwrite

// MergeSet: result := union(local, remote); whichever side differs from
// the union is updated towards it. Used only by the labels field.
func MergeSet(spec FieldSpec, local, remote model.Transaction) Resolution {
	localSet, remoteSet := local.Labels, remote.Labels
	union := spec.UnionLabels(localSet, remoteSet)

	res := Resolution{Field: spec.Name}
	localDiffers := !setEqualFold(localSet, union)
	remoteDiffers := !setEqualFold(remoteSet, union)

	if !localDiffers && !remoteDiffers {
		res.Diagnostic = DiagNone
		return res
	}

	capturedUnion := union
	if localDiffers {
		res.Local = &Mutation{
			Field: spec.Name,
			Old:   spec.Display(local), New: spec.DisplayLabels(capturedUnion),
			Apply: func(t *model.Transaction) { t.Labels = capturedUnion },
		}
	}
	if remoteDiffers {
		res.Remote = &Mutation{
			Field: spec.Name,
			Old:   spec.Display(remote), New: spec.DisplayLabels(capturedUnion),
			Apply: func(t *model.Transaction) { t.Labels = capturedUnion },
		}
	}
	res.Diagnostic = DiagMerged
	return res
}
