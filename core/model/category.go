package model

import (
	"fmt"
	"strings"
)

// Category is a node in the forest of expense/income categories.
// Categories with no ParentID are roots.
type Category struct {
	ID       int64
	Title    string
	ParentID *int64
}

// CategoryForest validates that a set of categories forms a forest (no
// cycles) and offers lookup helpers used by the rule engine and transfer
// detector to resolve category names to ids.
type CategoryForest struct {
	byID    map[int64]Category
	byTitle map[string]int64 // full dotted title, e.g. "Expenses:Food:Coffee"
}

// NewCategoryForest builds a forest from a flat category list, validating
// the no-cycles invariant.
func NewCategoryForest(cats []Category) (*CategoryForest, error) {
	f := &CategoryForest{
		byID:    make(map[int64]Category, len(cats)),
		byTitle: make(map[string]int64, len(cats)),
	}
	for _, c := range cats {
		f.byID[c.ID] = c
	}
	for _, c := range cats {
		if err := f.checkAcyclic(c.ID, map[int64]bool{}); err != nil {
			return nil, err
		}
		f.byTitle[f.fullTitle(c.ID)] = c.ID
	}
	return f, nil
}

func (f *CategoryForest) checkAcyclic(id int64, seen map[int64]bool) error {
	if seen[id] {
		return fmt.Errorf("category %d: cycle detected", id)
	}
	seen[id] = true
	c, ok := f.byID[id]
	if !ok || c.ParentID == nil {
		return nil
	}
	return f.checkAcyclic(*c.ParentID, seen)
}

func (f *CategoryForest) fullTitle(id int64) string {
	c, ok := f.byID[id]
	if !ok {
		return ""
	}
	if c.ParentID == nil {
		return c.Title
	}
	parent := f.fullTitle(*c.ParentID)
	if parent == "" {
		return c.Title
	}
	return parent + ":" + c.Title
}

// ByTitle resolves a dotted title (e.g. "Expenses:Food:Coffee") to a
// category id. Matching is exact, case-sensitive, against the full path.
func (f *CategoryForest) ByTitle(title string) (int64, bool) {
	id, ok := f.byTitle[title]
	return id, ok
}

// ByID returns the category for id, if present.
func (f *CategoryForest) ByID(id int64) (Category, bool) {
	c, ok := f.byID[id]
	return c, ok
}

// Title returns the full dotted title for a category id.
func (f *CategoryForest) Title(id int64) string { return f.fullTitle(id) }

// IsIncomeOrExpense reports whether id's root ancestor is an income or
// expense category, by the same "Income:..." / "Expenses:..." title
// convention the dotted-title lookup already relies on. Categories
// outside those two roots (e.g. equity, opening-balance housekeeping)
// are out of scope for rule preconditions that target income/expense.
func (f *CategoryForest) IsIncomeOrExpense(id int64) bool {
	c, ok := f.byID[id]
	if !ok {
		return false
	}
	for c.ParentID != nil {
		parent, ok := f.byID[*c.ParentID]
		if !ok {
			break
		}
		c = parent
	}
	root := strings.ToLower(c.Title)
	return strings.HasPrefix(root, "income") || strings.HasPrefix(root, "expense")
}
