package model

import (
	"time"

	"ledgersync/pkg/money"
)

// Balance is an informational balance assertion at a point in time for
// an account. It is not reconciled field-by-field like a Transaction —
// it is write-once informational data at the archive boundary.
type Balance struct {
	AccountID int64
	Date      time.Time
	Amount    money.Amount
}
