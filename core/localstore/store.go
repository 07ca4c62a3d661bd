// Package localstore defines the local archive's interface and two
// concrete implementations of the archive layouts named in the external
// interfaces design (hierarchical and single-file). The textual
// double-entry serialization itself, the lexer/printer that would
// render a human-edited plain-text ledger, is treated as an external
// collaborator; these implementations instead persist the same
// structured records as line-delimited JSON, which is enough to
// exercise every operation the orchestrator, rule engine, and transfer
// detector perform against a real on-disk archive.
package localstore

import (
	"time"

	"ledgersync/core/model"
)

// ListOptions scopes a ListTransactions call the same way
// remoteclient.ListOptions does, kept as a separate type so the two
// packages do not need to depend on each other.
type ListOptions struct {
	Window       Window
	UpdatedSince *time.Time
	ID           *int64
}

// Window scopes a query by calendar date range; a zero Window is
// unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

// Store is the local archive's interface. In-memory Transactions it
// returns are values: callers mutate copies and persist changes back
// through SaveTransaction, per the data model's ownership rule.
type Store interface {
	ListTransactions(opts ListOptions) ([]model.Transaction, error)
	ListAccounts() ([]model.Account, error)
	ListCategories() ([]model.Category, error)

	// SaveTransaction creates the transaction if its id is unseen, or
	// overwrites the existing record otherwise. Transactions are never
	// deleted by this system (data model Lifecycle).
	SaveTransaction(t model.Transaction) error
	SaveAccount(a model.Account) error
	SaveCategory(c model.Category) error

	// ChangelogPath returns the sibling changelog file path for this
	// archive, per the archive layout's "<primary>.log" / "<name>.log"
	// naming rule.
	ChangelogPath() string

	// Lock acquires the single-writer resource for the duration of a
	// workflow; Unlock releases it. The orchestrator calls Lock on
	// workflow entry and Unlock on every exit path.
	Lock() error
	Unlock() error
}
