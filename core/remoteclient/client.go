// Package remoteclient defines the interface to the remote ledger
// service and an HTTP implementation of it. Only the request/response
// contract is in scope here; transport internals beyond rate-limiting
// and retry are an external collaborator's concern.
package remoteclient

import (
	"context"
	"time"

	"ledgersync/core/model"
)

// Window scopes a query by calendar date range; a zero Window means
// unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

// ListOptions scopes a ListTransactions call.
type ListOptions struct {
	Window       Window
	UpdatedSince *time.Time
	ID           *int64 // non-nil restricts the call to a single transaction id
}

// Client is the remote ledger service's interface as consumed by the
// orchestrator. Implementations must honour the rate-limit and retry
// policy in the concurrency design internally; callers never retry.
type Client interface {
	// ListTransactions fetches transactions matching opts, paginating
	// internally and returning the full, assembled result.
	ListTransactions(ctx context.Context, opts ListOptions) ([]model.Transaction, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	// PatchTransaction applies a partial field update to one remote
	// transaction. fields maps field name (resolver.FieldSpec.Name) to
	// its new native-typed value, as produced by FieldSpec.Get.
	PatchTransaction(ctx context.Context, id int64, fields map[string]any) error
}
