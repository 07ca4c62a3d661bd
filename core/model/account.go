package model

import (
	"time"

	"ledgersync/pkg/money"
)

// AccountType distinguishes asset accounts (bank, cash, brokerage) from
// liability accounts (credit cards, loans).
type AccountType int

const (
	AccountUnknown AccountType = iota
	AccountAsset
	AccountLiability
)

func (t AccountType) String() string {
	switch t {
	case AccountAsset:
		return "asset"
	case AccountLiability:
		return "liability"
	default:
		return "unknown"
	}
}

// Account is a bank, card, or brokerage account mirrored from the remote
// ledger service.
type Account struct {
	ID              int64
	DisplayName     string
	Type            AccountType
	Currency        string
	OpeningDate     time.Time
	OpeningBalance  *money.Amount
	FXEnabled       bool // true for accounts that hold/convert foreign currency
}

// ResolveOpeningDate returns the earlier of the remote-provided opening
// date and the earliest observed transaction date for the account, per
// the data model's Account definition.
func ResolveOpeningDate(remoteOpening time.Time, earliestTxnDate time.Time) time.Time {
	if earliestTxnDate.IsZero() {
		return remoteOpening
	}
	if remoteOpening.IsZero() || earliestTxnDate.Before(remoteOpening) {
		return earliestTxnDate
	}
	return remoteOpening
}
