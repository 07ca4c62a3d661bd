// Package compare implements the comparator: it pairs local and remote
// transactions by id and, for each pair, resolves every field to produce
// an ordered diff plus a one-of-four classification.
package compare

import (
	"sort"

	"ledgersync/core/model"
	"ledgersync/core/resolver"
)

// Status classifies a transaction id into exactly one bucket.
type Status int

const (
	Identical Status = iota
	Differs
	OnlyLocal
	OnlyRemote
)

func (s Status) String() string {
	switch s {
	case Identical:
		return "identical"
	case Differs:
		return "differs"
	case OnlyLocal:
		return "only-local"
	case OnlyRemote:
		return "only-remote"
	default:
		return "unknown"
	}
}

// FieldDiff pairs a field name with its resolution for one transaction.
type FieldDiff struct {
	Field      string
	Resolution resolver.Resolution
}

// Comparison is the per-id outcome of the comparator.
type Comparison struct {
	ID         int64
	Status     Status
	Local      *model.Transaction
	Remote     *model.Transaction
	FieldDiffs []FieldDiff // populated only when Status == Differs
}

// Summary tallies comparisons across all ids in a run.
type Summary struct {
	Identical  int
	Differs    int
	OnlyLocal  int
	OnlyRemote int
}

// Result is the comparator's output for a full pull/push/diff pass.
type Result struct {
	Comparisons []Comparison
	Summary     Summary
}

// Compare pairs locals and remotes by id and resolves every field of
// each pair using dir's strategy half. Transactions present on only one
// side are reported without field diffs. Ids are processed in ascending
// order, per the orchestrator's ordering guarantee.
func Compare(locals, remotes []model.Transaction, dir resolver.Direction) Result {
	localByID := indexByID(locals)
	remoteByID := indexByID(remotes)

	ids := make(map[int64]struct{}, len(localByID)+len(remoteByID))
	for id := range localByID {
		ids[id] = struct{}{}
	}
	for id := range remoteByID {
		ids[id] = struct{}{}
	}
	sorted := make([]int64, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var result Result
	for _, id := range sorted {
		local, hasLocal := localByID[id]
		remote, hasRemote := remoteByID[id]

		switch {
		case hasLocal && !hasRemote:
			result.Comparisons = append(result.Comparisons, Comparison{ID: id, Status: OnlyLocal, Local: ptr(local)})
			result.Summary.OnlyLocal++
		case !hasLocal && hasRemote:
			result.Comparisons = append(result.Comparisons, Comparison{ID: id, Status: OnlyRemote, Remote: ptr(remote)})
			result.Summary.OnlyRemote++
		default:
			diffs := diffFields(local, remote, dir)
			status := Identical
			if len(diffs) > 0 {
				status = Differs
			}
			c := Comparison{ID: id, Status: status, Local: ptr(local), Remote: ptr(remote)}
			if status == Differs {
				c.FieldDiffs = diffs
			}
			result.Comparisons = append(result.Comparisons, c)
			if status == Identical {
				result.Summary.Identical++
			} else {
				result.Summary.Differs++
			}
		}
	}
	return result
}

// diffFields resolves every field in declaration order and keeps those
// whose resolution produced a mutation or a conflict-warning diagnostic
// — fields that resolved to DiagNone are not differences.
func diffFields(local, remote model.Transaction, dir resolver.Direction) []FieldDiff {
	var diffs []FieldDiff
	for _, name := range resolver.FieldOrder {
		spec := resolver.Fields[name]
		res := resolver.Resolve(spec, local, remote, dir)
		if res.Diagnostic == resolver.DiagNone {
			continue
		}
		diffs = append(diffs, FieldDiff{Field: name, Resolution: res})
	}
	return diffs
}

func indexByID(txns []model.Transaction) map[int64]model.Transaction {
	m := make(map[int64]model.Transaction, len(txns))
	for _, t := range txns {
		m[t.ID] = t
	}
	return m
}

func ptr(t model.Transaction) *model.Transaction { return &t }
