package resolver

import (
	"strconv"
	"strings"
	"time"

	"ledgersync/core/model"
	"ledgersync/pkg/idset"
)

// FieldSpec binds one Transaction field to its display/comparison/mutation
// helpers and its (pull, push) strategy pair.
type FieldSpec struct {
	Name string

	// Equal reports whether the field is identical between local and
	// remote. Implementations are field-type-specific (decimal.Equal for
	// amounts, case-folded set equality for labels, and so on).
	Equal func(local, remote model.Transaction) bool

	// Display renders a transaction's value for this field as changelog
	// text ("[...]" for lists, literal otherwise).
	Display func(t model.Transaction) string

	// Get returns the field's raw (native-typed) value from t, for
	// building a remote PATCH payload — never used for display.
	Get func(t model.Transaction) any

	// SetLocal writes fromRemote's value for this field onto t (local
	// apply); SetRemote writes fromLocal's value onto t (writeback).
	SetLocal  func(t *model.Transaction, fromRemote model.Transaction)
	SetRemote func(t *model.Transaction, fromLocal model.Transaction)

	// UnionLabels and DisplayLabels are only populated for the labels
	// field's Merge-set strategy.
	UnionLabels  func(a, b idset.Set[string]) idset.Set[string]
	DisplayLabels func(s idset.Set[string]) string

	PullStrategy Strategy
	PushStrategy Strategy
}

func displayString(s string) string {
	if s == "" {
		return "\"\""
	}
	return s
}

func displayInt64Ptr(p *int64) string {
	if p == nil {
		return "null"
	}
	return strconv.FormatInt(*p, 10)
}

func displayBool(b bool) string { return strconv.FormatBool(b) }

func displayTime(t time.Time) string {
	if t.IsZero() {
		return "null"
	}
	return t.Format("2006-01-02")
}

func displayTimestamp(t time.Time) string {
	if t.IsZero() {
		return "null"
	}
	return t.Format("2006-01-02 15:04:05")
}

func normalizeLabelSet(s idset.Set[string]) idset.Set[string] {
	out := idset.New[string]()
	for _, l := range s.Slice() {
		norm := model.NormalizeLabel(l)
		out.Add(norm)
	}
	return out
}

func setEqualFold(a, b idset.Set[string]) bool {
	return idset.Equal(normalizeLabelSet(a), normalizeLabelSet(b))
}

func displayLabelSet(s idset.Set[string]) string {
	sorted := idset.SortedStrings(normalizeLabelSet(s))
	return "[" + strings.Join(sorted, ",") + "]"
}

// Fields is the registry of every resolvable Transaction field, keyed by
// name, in declaration order (mutation log entries follow this order).
var Fields = buildFields()

// FieldOrder lists field names in declaration order.
var FieldOrder = []string{
	"amount", "account_id", "currency", "closing_balance", "date",
	"narration", "payee", "is_transfer", "paired_id", "suspect_reason",
	"updated_at",
	"category_id", "needs_review",
	"labels",
}

func buildFields() map[string]FieldSpec {
	m := make(map[string]FieldSpec, len(FieldOrder))

	immutableField := func(name string, eq func(l, r model.Transaction) bool, disp func(model.Transaction) string, get func(model.Transaction) any) FieldSpec {
		return FieldSpec{
			Name: name, Equal: eq, Display: disp, Get: get,
			SetLocal:  func(*model.Transaction, model.Transaction) {},
			SetRemote: func(*model.Transaction, model.Transaction) {},
			PullStrategy: Immutable, PushStrategy: Immutable,
		}
	}

	m["amount"] = immutableField("amount",
		func(l, r model.Transaction) bool { return l.Amount.Equal(r.Amount) },
		func(t model.Transaction) string { return t.Amount.String() },
		func(t model.Transaction) any { return t.Amount })

	m["account_id"] = immutableField("account_id",
		func(l, r model.Transaction) bool { return l.AccountID == r.AccountID },
		func(t model.Transaction) string { return strconv.FormatInt(t.AccountID, 10) },
		func(t model.Transaction) any { return t.AccountID })

	m["currency"] = immutableField("currency",
		func(l, r model.Transaction) bool { return l.Amount.Currency == r.Amount.Currency },
		func(t model.Transaction) string { return t.Amount.Currency },
		func(t model.Transaction) any { return t.Amount.Currency })

	m["closing_balance"] = immutableField("closing_balance",
		func(l, r model.Transaction) bool {
			if (l.ClosingBalance == nil) != (r.ClosingBalance == nil) {
				return false
			}
			if l.ClosingBalance == nil {
				return true
			}
			return l.ClosingBalance.Equal(*r.ClosingBalance)
		},
		func(t model.Transaction) string {
			if t.ClosingBalance == nil {
				return "null"
			}
			return t.ClosingBalance.String()
		},
		func(t model.Transaction) any { return t.ClosingBalance })

	m["date"] = immutableField("date",
		func(l, r model.Transaction) bool { return l.Date.Equal(r.Date) },
		func(t model.Transaction) string { return displayTime(t.Date) },
		func(t model.Transaction) any { return t.Date })

	localWinsField := func(name string,
		eq func(l, r model.Transaction) bool,
		disp func(model.Transaction) string,
		get func(model.Transaction) any,
		setField func(t *model.Transaction, from model.Transaction),
	) FieldSpec {
		return FieldSpec{
			Name: name, Equal: eq, Display: disp, Get: get,
			SetLocal:  func(t *model.Transaction, fromRemote model.Transaction) { setField(t, fromRemote) },
			SetRemote: func(t *model.Transaction, fromLocal model.Transaction) { setField(t, fromLocal) },
			PullStrategy: LocalWinsWriteback, PushStrategy: LocalWinsWriteback,
		}
	}

	m["narration"] = localWinsField("narration",
		func(l, r model.Transaction) bool { return l.Narration == r.Narration },
		func(t model.Transaction) string { return displayString(t.Narration) },
		func(t model.Transaction) any { return t.Narration },
		func(t *model.Transaction, from model.Transaction) { t.Narration = from.Narration })

	m["payee"] = localWinsField("payee",
		func(l, r model.Transaction) bool { return l.Payee == r.Payee },
		func(t model.Transaction) string { return displayString(t.Payee) },
		func(t model.Transaction) any { return t.Payee },
		func(t *model.Transaction, from model.Transaction) { t.Payee = from.Payee })

	m["is_transfer"] = localWinsField("is_transfer",
		func(l, r model.Transaction) bool { return l.IsTransfer == r.IsTransfer },
		func(t model.Transaction) string { return displayBool(t.IsTransfer) },
		func(t model.Transaction) any { return t.IsTransfer },
		func(t *model.Transaction, from model.Transaction) { t.IsTransfer = from.IsTransfer })

	m["paired_id"] = localWinsField("paired_id",
		func(l, r model.Transaction) bool { return equalInt64Ptr(l.PairedID, r.PairedID) },
		func(t model.Transaction) string { return displayInt64Ptr(t.PairedID) },
		func(t model.Transaction) any { return t.PairedID },
		func(t *model.Transaction, from model.Transaction) { t.PairedID = clonePtr(from.PairedID) })

	m["suspect_reason"] = localWinsField("suspect_reason",
		func(l, r model.Transaction) bool { return equalStringPtr(l.SuspectReason, r.SuspectReason) },
		func(t model.Transaction) string {
			if t.SuspectReason == nil {
				return "null"
			}
			return *t.SuspectReason
		},
		func(t model.Transaction) any { return t.SuspectReason },
		func(t *model.Transaction, from model.Transaction) {
			if from.SuspectReason == nil {
				t.SuspectReason = nil
				return
			}
			v := *from.SuspectReason
			t.SuspectReason = &v
		})

	m["updated_at"] = FieldSpec{
		Name: "updated_at",
		Equal: func(l, r model.Transaction) bool { return l.UpdatedAt.Equal(r.UpdatedAt) },
		Display: func(t model.Transaction) string { return displayTimestamp(t.UpdatedAt) },
		Get: func(t model.Transaction) any { return t.UpdatedAt },
		SetLocal:  func(t *model.Transaction, fromRemote model.Transaction) { t.UpdatedAt = fromRemote.UpdatedAt },
		SetRemote: func(t *model.Transaction, fromLocal model.Transaction) { t.UpdatedAt = fromLocal.UpdatedAt },
		PullStrategy: RemoteWinsOverwrite, PushStrategy: RemoteWinsOverwrite,
	}

	m["category_id"] = FieldSpec{
		Name: "category_id",
		Equal: func(l, r model.Transaction) bool { return equalInt64Ptr(l.CategoryID, r.CategoryID) },
		Display: func(t model.Transaction) string { return displayInt64Ptr(t.CategoryID) },
		Get: func(t model.Transaction) any { return t.CategoryID },
		SetLocal:  func(t *model.Transaction, fromRemote model.Transaction) { t.CategoryID = clonePtr(fromRemote.CategoryID) },
		SetRemote: func(t *model.Transaction, fromLocal model.Transaction) { t.CategoryID = clonePtr(fromLocal.CategoryID) },
		// pull: remote-wins; push: local-wins-writeback. The only
		// field whose pull and push strategies differ.
		PullStrategy: RemoteWins,
		PushStrategy: LocalWinsWriteback,
	}

	m["needs_review"] = FieldSpec{
		Name: "needs_review",
		Equal: func(l, r model.Transaction) bool { return l.NeedsReview == r.NeedsReview },
		Display: func(t model.Transaction) string { return displayBool(t.NeedsReview) },
		Get: func(t model.Transaction) any { return t.NeedsReview },
		SetLocal:  func(t *model.Transaction, fromRemote model.Transaction) { t.NeedsReview = fromRemote.NeedsReview },
		SetRemote: func(t *model.Transaction, fromLocal model.Transaction) { t.NeedsReview = fromLocal.NeedsReview },
		PullStrategy: RemoteWins, PushStrategy: RemoteWins,
	}

	m["labels"] = FieldSpec{
		Name: "labels",
		Equal: func(l, r model.Transaction) bool { return setEqualFold(l.Labels, r.Labels) },
		Display: func(t model.Transaction) string { return displayLabelSet(t.Labels) },
		Get: func(t model.Transaction) any { return idset.SortedStrings(normalizeLabelSet(t.Labels)) },
		SetLocal:  func(t *model.Transaction, fromRemote model.Transaction) { t.Labels = normalizeLabelSet(fromRemote.Labels) },
		SetRemote: func(t *model.Transaction, fromLocal model.Transaction) { t.Labels = normalizeLabelSet(fromLocal.Labels) },
		UnionLabels: func(a, b idset.Set[string]) idset.Set[string] {
			return idset.Union(normalizeLabelSet(a), normalizeLabelSet(b))
		},
		DisplayLabels: displayLabelSet,
		PullStrategy:  MergeSet,
		PushStrategy:  MergeSet,
	}

	return m
}

func equalInt64Ptr(a, b *int64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return *a == *b
}

func equalStringPtr(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return *a == *b
}

func clonePtr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
