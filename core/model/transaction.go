// Package model defines the canonical records shared by every
// reconciliation component: Transaction, Account, Category, and Balance,
// plus the invariants that bind them.
package model

import (
	"strings"
	"time"

	"ledgersync/pkg/idset"
	"ledgersync/pkg/money"
)

// Transaction is the central record mirrored between the remote ledger
// service and the local archive.
type Transaction struct {
	ID             int64
	Date           time.Time // calendar date only; time-of-day is not meaningful
	Amount         money.Amount
	AccountID      int64
	CategoryID     *int64
	Payee          string
	Narration      string
	Labels         idset.Set[string]
	NeedsReview    bool
	IsTransfer     bool
	PairedID       *int64
	SuspectReason  *string // comma-separated reason tokens
	ClosingBalance *money.Amount
	UpdatedAt      time.Time
}

// Currency returns the transaction's currency code, delegating to Amount.
func (t Transaction) Currency() string { return t.Amount.Currency }

// Clone returns a deep-enough copy of t so callers can mutate the result
// without affecting the original — the orchestrator treats transactions
// returned by the local store as values, per the data model's ownership
// rule.
func (t Transaction) Clone() Transaction {
	c := t
	if t.CategoryID != nil {
		id := *t.CategoryID
		c.CategoryID = &id
	}
	if t.PairedID != nil {
		id := *t.PairedID
		c.PairedID = &id
	}
	if t.SuspectReason != nil {
		r := *t.SuspectReason
		c.SuspectReason = &r
	}
	if t.ClosingBalance != nil {
		b := *t.ClosingBalance
		c.ClosingBalance = &b
	}
	c.Labels = idset.New(t.Labels.Slice()...)
	return c
}

// NormalizeLabel lower-cases and trims a label token. Label tokens must
// match [a-z0-9][a-z0-9-]* after normalization (invariant v); validity is
// checked separately by ValidLabel.
func NormalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidLabel reports whether a normalized label token is well-formed.
func ValidLabel(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '-' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Touch advances UpdatedAt to now if now is later, honouring invariant
// (vi): updated_at is never moved backwards.
func (t *Transaction) Touch(now time.Time) {
	if now.After(t.UpdatedAt) {
		t.UpdatedAt = now
	}
}
