package rules

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"ledgersync/core/model"
	"ledgersync/pkg/money"
)

func forest(t *testing.T) *model.CategoryForest {
	f, err := model.NewCategoryForest([]model.Category{
		{ID: 1, Title: "Expenses"},
		{ID: 2, Title: "Coffee", ParentID: int64ptr(1)},
	})
	require.NoError(t, err)
	return f
}

func int64ptr(v int64) *int64 { return &v }

func sampleAccounts() map[int64]model.Account {
	return map[int64]model.Account{
		1: {ID: 1, DisplayName: "Everyday Checking", Type: model.AccountAsset},
	}
}

func sampleTxn() model.Transaction {
	amt, _ := money.Parse("-4.50", "AUD")
	return model.Transaction{ID: 1, Payee: "Blue Bottle Coffee", Narration: "POS purchase", Amount: amt, AccountID: 1}
}

func TestSetAppliesFirstMatch(t *testing.T) {
	re := Rule{
		ID: 10,
		If: Precondition{MerchantRegexp: mustCaseInsensitiveRegexp(t, "coffee")},
		Then: []Transform{
			{Kind: SetCategory, Category: "Expenses:Coffee"},
			{Kind: SetLabels, LabelOps: []LabelOp{{Token: "Auto-Categorized"}}},
		},
	}
	txn := sampleTxn()
	matched, ok, err := Set([]Rule{re}, &txn, sampleAccounts(), forest(t))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(10), matched.ID)
	require.NotNil(t, txn.CategoryID)
	require.Equal(t, int64(2), *txn.CategoryID)
	require.True(t, txn.Labels.Has("auto-categorized"))
}

func TestSetMerchantMatchIsCaseInsensitive(t *testing.T) {
	re := Rule{
		ID:   10,
		If:   Precondition{MerchantRegexp: mustCaseInsensitiveRegexp(t, "BLUE BOTTLE")},
		Then: []Transform{{Kind: SetCategory, Category: "Expenses:Coffee"}},
	}
	txn := sampleTxn()
	_, ok, err := Set([]Rule{re}, &txn, sampleAccounts(), forest(t))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSetAccountPreconditionScopedToAssetLiability(t *testing.T) {
	re := Rule{
		ID:   10,
		If:   Precondition{AccountRegexp: mustRegexp(t, "Checking")},
		Then: []Transform{{Kind: SetCategory, Category: "Expenses:Coffee"}},
	}
	txn := sampleTxn()
	accts := sampleAccounts()
	_, ok, err := Set([]Rule{re}, &txn, accts, forest(t))
	require.NoError(t, err)
	require.True(t, ok)

	unknown := map[int64]model.Account{1: {ID: 1, DisplayName: "Everyday Checking", Type: model.AccountUnknown}}
	txn2 := sampleTxn()
	_, ok, err = Set([]Rule{re}, &txn2, unknown, forest(t))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetCategoryPreconditionScopedToIncomeExpense(t *testing.T) {
	f, err := model.NewCategoryForest([]model.Category{
		{ID: 1, Title: "Expenses"},
		{ID: 2, Title: "Coffee", ParentID: int64ptr(1)},
		{ID: 3, Title: "Equity"},
		{ID: 4, Title: "Opening Balances", ParentID: int64ptr(3)},
	})
	require.NoError(t, err)

	re := Rule{
		ID:   10,
		If:   Precondition{CategoryRegexp: mustRegexp(t, "Coffee")},
		Then: []Transform{{Kind: SetLabels, LabelOps: []LabelOp{{Token: "x"}}}},
	}

	matching := sampleTxn()
	matching.CategoryID = int64ptr(2)
	_, ok, err := Set([]Rule{re}, &matching, sampleAccounts(), f)
	require.NoError(t, err)
	require.True(t, ok)

	outOfScope := sampleTxn()
	outOfScope.CategoryID = int64ptr(4)
	reOutOfScope := Rule{
		ID:   11,
		If:   Precondition{CategoryRegexp: mustRegexp(t, "Opening")},
		Then: []Transform{{Kind: SetLabels, LabelOps: []LabelOp{{Token: "x"}}}},
	}
	_, ok, err = Set([]Rule{reOutOfScope}, &outOfScope, sampleAccounts(), f)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetMetadataPreconditionMatchesNeedsReview(t *testing.T) {
	re := Rule{
		ID:   10,
		If:   Precondition{Metadata: map[string]*regexp.Regexp{"needs_review": mustRegexp(t, "^true$")}},
		Then: []Transform{{Kind: SetLabels, LabelOps: []LabelOp{{Token: "flagged"}}}},
	}
	txn := sampleTxn()
	txn.NeedsReview = true
	_, ok, err := Set([]Rule{re}, &txn, sampleAccounts(), forest(t))
	require.NoError(t, err)
	require.True(t, ok)

	txn2 := sampleTxn()
	txn2.NeedsReview = false
	_, ok, err = Set([]Rule{re}, &txn2, sampleAccounts(), forest(t))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetLabelsTransformAddsAndRemoves(t *testing.T) {
	re := Rule{
		ID: 10,
		If: Precondition{MerchantRegexp: mustCaseInsensitiveRegexp(t, "coffee")},
		Then: []Transform{
			{Kind: SetLabels, LabelOps: []LabelOp{{Token: "coffee"}, {Token: "uncategorized", Remove: true}}},
		},
	}
	txn := sampleTxn()
	txn.Labels = newLabelSet([]string{"uncategorized"})
	_, ok, err := Set([]Rule{re}, &txn, sampleAccounts(), forest(t))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, txn.Labels.Has("coffee"))
	require.False(t, txn.Labels.Has("uncategorized"))
}

func TestSetMetadataTransformEncodesAsLabel(t *testing.T) {
	re := Rule{
		ID:   10,
		If:   Precondition{MerchantRegexp: mustCaseInsensitiveRegexp(t, "coffee")},
		Then: []Transform{{Kind: SetMetadata, Metadata: map[string]string{"vendor_type": "coffee_shop"}}},
	}
	txn := sampleTxn()
	_, ok, err := Set([]Rule{re}, &txn, sampleAccounts(), forest(t))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, txn.Labels.Has("vendor_type:coffee_shop"))
}

func TestSetNoMatch(t *testing.T) {
	txn := sampleTxn()
	_, ok, err := Set(nil, &txn, sampleAccounts(), forest(t))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetUnknownCategoryErrors(t *testing.T) {
	re := Rule{
		ID:   10,
		If:   Precondition{MerchantRegexp: mustCaseInsensitiveRegexp(t, "coffee")},
		Then: []Transform{{Kind: SetCategory, Category: "Expenses:Nonexistent"}},
	}
	txn := sampleTxn()
	_, _, err := Set([]Rule{re}, &txn, sampleAccounts(), forest(t))
	require.Error(t, err)
}

func TestSetRulesSortByIDNumerically(t *testing.T) {
	// 2 would sort after 10 and 17 lexicographically as strings; assert
	// numeric ordering picks rule 2 first as first-match-wins requires.
	low := Rule{ID: 2, If: Precondition{MerchantRegexp: mustCaseInsensitiveRegexp(t, "coffee")}, Then: []Transform{{Kind: SetMemo, Memo: "low"}}}
	high := Rule{ID: 17, If: Precondition{MerchantRegexp: mustCaseInsensitiveRegexp(t, "coffee")}, Then: []Transform{{Kind: SetMemo, Memo: "high"}}}
	txn := sampleTxn()
	matched, ok, err := Set([]Rule{high, low}, &txn, sampleAccounts(), forest(t))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2), matched.ID)
	require.Equal(t, "low", txn.Narration)
}

func TestLookupReturnsAllMatchesSorted(t *testing.T) {
	a := Rule{ID: 20, If: Precondition{MerchantRegexp: mustCaseInsensitiveRegexp(t, "coffee")}, Then: []Transform{{Kind: SetLabels, LabelOps: []LabelOp{{Token: "x"}}}}}
	b := Rule{ID: 10, If: Precondition{AccountRegexp: mustRegexp(t, "Checking")}, Then: []Transform{{Kind: SetLabels, LabelOps: []LabelOp{{Token: "y"}}}}}
	got := Lookup([]Rule{a, b}, sampleTxn(), sampleAccounts(), forest(t))
	require.Len(t, got, 2)
	require.Equal(t, int64(10), got[0].ID)
	require.Equal(t, int64(20), got[1].ID)
}

func TestLoadDirRejectsDuplicateIDsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "a.yaml", `
- id: 10
  if:
    merchant: "coffee"
  then:
    category: "Expenses:Coffee"
`)
	writeRuleFile(t, dir, "b.yaml", `
- id: 10
  if:
    account: "Checking"
  then:
    labels: "dup"
`)
	_, err := LoadDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "10")
}

func TestLoadDirRejectsEmptyPrecondition(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "a.yaml", `
- id: 11
  if: {}
  then:
    labels: "x"
`)
	_, err := LoadDir(dir)
	require.Error(t, err)
}

func TestLoadDirParsesValidRule(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "a.yaml", `
- id: 17
  if:
    merchant: "^starbucks"
    metadata:
      needs_reimburse: "true"
  then:
    category: "Expenses:Food:Coffee"
    labels: ["+coffee", "-uncategorized"]
    metadata:
      vendor_type: coffee_shop
`)
	got, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(17), got[0].ID)
	require.NotNil(t, got[0].If.MerchantRegexp)
	require.NotNil(t, got[0].If.Metadata["needs_reimburse"])

	var labelTransform *Transform
	for i := range got[0].Then {
		if got[0].Then[i].Kind == SetLabels {
			labelTransform = &got[0].Then[i]
		}
	}
	require.NotNil(t, labelTransform)
	require.Len(t, labelTransform.LabelOps, 2)
	require.Equal(t, LabelOp{Token: "coffee"}, labelTransform.LabelOps[0])
	require.Equal(t, LabelOp{Token: "uncategorized", Remove: true}, labelTransform.LabelOps[1])
}

func TestLoadDirRejectsBadRegex(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "a.yaml", `
- id: 10
  if:
    merchant: "[unterminated"
  then:
    labels: "x"
`)
	_, err := LoadDir(dir)
	require.Error(t, err)
}

func writeRuleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func mustRegexp(t *testing.T, pattern string) *regexp.Regexp {
	t.Helper()
	return regexp.MustCompile(pattern)
}

func mustCaseInsensitiveRegexp(t *testing.T, pattern string) *regexp.Regexp {
	t.Helper()
	return regexp.MustCompile("(?i)" + pattern)
}
