// Package rules implements the local-only categorization rule engine:
// loading rule files, validating global id uniqueness, and applying the
// first matching rule's transforms to a transaction.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"ledgersync/core/model"
	"ledgersync/pkg/idset"
)

func newLabelSet(items []string) idset.Set[string] { return idset.New(items...) }

// Rule is one local categorization rule: if Precondition matches a
// transaction, Transforms are applied to it in order. Rules never touch
// the remote; a matched rule's effects are written back through the
// normal pull/push resolver flow like any other local edit.
type Rule struct {
	ID         int64
	If         Precondition
	Then       []Transform
	Disabled   bool
	SourceFile string // for diagnostics: which file this rule came from
}

// Precondition tests whether a rule applies to a transaction. All
// non-empty fields must match (logical AND); a zero-value Precondition
// matches every transaction and is rejected at load time.
type Precondition struct {
	MerchantRegexp *regexp.Regexp            // against payee, case-insensitive
	AccountRegexp  *regexp.Regexp            // against the account's display name
	CategoryRegexp *regexp.Regexp            // against the category's full title
	Metadata       map[string]*regexp.Regexp // key -> regex over the metadata value
}

// Matches reports whether p applies to t. account scopes to asset and
// liability accounts only; category scopes to income and expense
// categories only, per the rule engine's precondition rules.
func (p Precondition) Matches(t model.Transaction, accountsByID map[int64]model.Account, cats *model.CategoryForest) bool {
	if p.MerchantRegexp != nil && !p.MerchantRegexp.MatchString(t.Payee) {
		return false
	}
	if p.AccountRegexp != nil {
		acc, ok := accountsByID[t.AccountID]
		if !ok || (acc.Type != model.AccountAsset && acc.Type != model.AccountLiability) {
			return false
		}
		if !p.AccountRegexp.MatchString(acc.DisplayName) {
			return false
		}
	}
	if p.CategoryRegexp != nil {
		if t.CategoryID == nil || cats == nil || !cats.IsIncomeOrExpense(*t.CategoryID) {
			return false
		}
		if !p.CategoryRegexp.MatchString(cats.Title(*t.CategoryID)) {
			return false
		}
	}
	for k, re := range p.Metadata {
		val, ok := metadataValue(t, k)
		if !ok || !re.MatchString(val) {
			return false
		}
	}
	return true
}

// IsZero reports whether p has no constraints at all — such a
// precondition would match every transaction and is rejected at load
// time to catch an accidentally empty rule file entry.
func (p Precondition) IsZero() bool {
	return p.MerchantRegexp == nil && p.AccountRegexp == nil && p.CategoryRegexp == nil && len(p.Metadata) == 0
}

// metadataValue resolves one metadata precondition key against a
// transaction's metadata. needs_review is a synthetic key carrying the
// field's boolean stringified; anything else is looked up as a
// "key:value" encoded label, the data model's metadata-as-label
// encoding.
func metadataValue(t model.Transaction, key string) (string, bool) {
	if key == "needs_review" {
		return strconv.FormatBool(t.NeedsReview), true
	}
	return labelMetadata(t, key)
}

func labelMetadata(t model.Transaction, key string) (string, bool) {
	prefix := key + ":"
	for _, l := range t.Labels.Slice() {
		if len(l) > len(prefix) && l[:len(prefix)] == prefix {
			return l[len(prefix):], true
		}
	}
	return "", false
}

// TransformKind distinguishes the transform operations a rule may
// perform.
type TransformKind int

const (
	SetCategory TransformKind = iota
	SetLabels
	SetMemo
	SetMetadata
)

// LabelOp is one add or remove within a rule's labels transform.
type LabelOp struct {
	Token  string
	Remove bool // true for a "-tag" entry, false for "+tag" (or bare "tag")
}

// Transform is one mutation a matched rule applies to a transaction.
// Only the field matching Kind is populated.
type Transform struct {
	Kind     TransformKind
	Category string            // SetCategory: category title to resolve
	LabelOps []LabelOp         // SetLabels
	Memo     string            // SetMemo: new narration text
	Metadata map[string]string // SetMetadata: key -> value, each encoded as a label
}

// Apply mutates t in place according to transforms, in order. cats
// resolves category titles (SetCategory's Category) to ids; Apply
// returns an error if a SetCategory transform names an unknown
// category.
func Apply(t *model.Transaction, transforms []Transform, cats *model.CategoryForest) error {
	for _, tr := range transforms {
		switch tr.Kind {
		case SetCategory:
			id, ok := cats.ByTitle(tr.Category)
			if !ok {
				return fmt.Errorf("unknown category %q", tr.Category)
			}
			t.CategoryID = &id
		case SetLabels:
			t.Labels = applyLabelOps(t.Labels, tr.LabelOps)
		case SetMemo:
			t.Narration = tr.Memo
		case SetMetadata:
			t.Labels = applyMetadataTransform(t.Labels, tr.Metadata)
		default:
			return fmt.Errorf("unsupported transform kind %d", tr.Kind)
		}
	}
	return nil
}

// applyLabelOps resolves a rule's labels transform: the resulting set
// is the pre-image plus adds minus removes, applied in the order given.
func applyLabelOps(labels idset.Set[string], ops []LabelOp) idset.Set[string] {
	out := newLabelSet(labels.Slice())
	for _, op := range ops {
		norm := model.NormalizeLabel(op.Token)
		if op.Remove {
			out.Remove(norm)
		} else {
			out.Add(norm)
		}
	}
	return out
}

// applyMetadataTransform writes each key/value pair as a "key:value"
// encoded label, replacing any existing label for the same key.
func applyMetadataTransform(labels idset.Set[string], kv map[string]string) idset.Set[string] {
	cur := labels.Slice()
	for k, v := range kv {
		prefix := k + ":"
		kept := cur[:0:0]
		for _, l := range cur {
			if len(l) < len(prefix) || l[:len(prefix)] != prefix {
				kept = append(kept, l)
			}
		}
		cur = append(kept, model.NormalizeLabel(k)+":"+v)
	}
	return newLabelSet(cur)
}

// Set applies the first matching, non-disabled rule (by ascending id
// order) to t, or returns ok=false if none match.
func Set(rules []Rule, t *model.Transaction, accountsByID map[int64]model.Account, cats *model.CategoryForest) (matched Rule, ok bool, err error) {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, r := range sorted {
		if r.Disabled {
			continue
		}
		if r.If.Matches(*t, accountsByID, cats) {
			if err := Apply(t, r.Then, cats); err != nil {
				return r, false, fmt.Errorf("rule %d: %w", r.ID, err)
			}
			return r, true, nil
		}
	}
	return Rule{}, false, nil
}

// Lookup returns every enabled rule whose precondition matches t, in
// ascending id order — the read-side complement to Set used by the
// "rule lookup" inspection command to show which rules a transaction
// would match without applying any of them.
func Lookup(rules []Rule, t model.Transaction, accountsByID map[int64]model.Account, cats *model.CategoryForest) []Rule {
	var out []Rule
	for _, r := range rules {
		if !r.Disabled && r.If.Matches(t, accountsByID, cats) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// List returns every loaded rule in ascending id order, including
// disabled ones — the read side backing the "rule list" command.
func List(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
