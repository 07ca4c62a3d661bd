package localstore

import (
	"fmt"
	"time"

	"ledgersync/core/model"
	"ledgersync/pkg/idset"
	"ledgersync/pkg/money"
)

// txnRecord is the on-disk line-delimited-JSON shape of a Transaction.
// Kept separate from model.Transaction so the archive's on-disk schema
// can evolve independently of the in-memory type.
type txnRecord struct {
	ID             int64    `json:"id"`
	Date           string   `json:"date"`
	Amount         string   `json:"amount"`
	Currency       string   `json:"currency"`
	AccountID      int64    `json:"account_id"`
	CategoryID     *int64   `json:"category_id,omitempty"`
	Payee          string   `json:"payee"`
	Narration      string   `json:"narration"`
	Labels         []string `json:"labels,omitempty"`
	NeedsReview    bool     `json:"needs_review"`
	IsTransfer     bool     `json:"is_transfer"`
	PairedID       *int64   `json:"paired_id,omitempty"`
	SuspectReason  *string  `json:"suspect_reason,omitempty"`
	ClosingBalance *string  `json:"closing_balance,omitempty"`
	UpdatedAt      string   `json:"updated_at"`
}

func toRecord(t model.Transaction) txnRecord {
	r := txnRecord{
		ID: t.ID, Date: t.Date.Format("2006-01-02"),
		Amount: t.Amount.Value.String(), Currency: t.Amount.Currency,
		AccountID: t.AccountID, CategoryID: t.CategoryID,
		Payee: t.Payee, Narration: t.Narration,
		Labels: t.Labels.SortedStrings(), NeedsReview: t.NeedsReview,
		IsTransfer: t.IsTransfer, PairedID: t.PairedID,
		SuspectReason: t.SuspectReason,
		UpdatedAt:     t.UpdatedAt.Format(time.RFC3339),
	}
	if t.ClosingBalance != nil {
		s := t.ClosingBalance.Value.String()
		r.ClosingBalance = &s
	}
	return r
}

func fromRecord(r txnRecord) (model.Transaction, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("record %d: parse date: %w", r.ID, err)
	}
	amount, err := money.Parse(r.Amount, r.Currency)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("record %d: parse amount: %w", r.ID, err)
	}
	updatedAt, err := time.Parse(time.RFC3339, r.UpdatedAt)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("record %d: parse updated_at: %w", r.ID, err)
	}
	var closing *money.Amount
	if r.ClosingBalance != nil {
		a, err := money.Parse(*r.ClosingBalance, r.Currency)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("record %d: parse closing_balance: %w", r.ID, err)
		}
		closing = &a
	}
	return model.Transaction{
		ID: r.ID, Date: date, Amount: amount, AccountID: r.AccountID,
		CategoryID: r.CategoryID, Payee: r.Payee, Narration: r.Narration,
		Labels: idset.New(r.Labels...), NeedsReview: r.NeedsReview,
		IsTransfer: r.IsTransfer, PairedID: r.PairedID,
		SuspectReason: r.SuspectReason, ClosingBalance: closing,
		UpdatedAt: updatedAt,
	}, nil
}

type acctRecord struct {
	ID             int64   `json:"id"`
	DisplayName    string  `json:"display_name"`
	Type           string  `json:"type"`
	Currency       string  `json:"currency"`
	OpeningDate    string  `json:"opening_date"`
	OpeningBalance *string `json:"opening_balance,omitempty"`
	FXEnabled      bool    `json:"fx_enabled"`
}

func toAcctRecord(a model.Account) acctRecord {
	r := acctRecord{
		ID: a.ID, DisplayName: a.DisplayName, Type: a.Type.String(),
		Currency: a.Currency, OpeningDate: a.OpeningDate.Format("2006-01-02"),
		FXEnabled: a.FXEnabled,
	}
	if a.OpeningBalance != nil {
		s := a.OpeningBalance.Value.String()
		r.OpeningBalance = &s
	}
	return r
}

func fromAcctRecord(r acctRecord) (model.Account, error) {
	opening, err := time.Parse("2006-01-02", r.OpeningDate)
	if err != nil {
		return model.Account{}, fmt.Errorf("account %d: parse opening_date: %w", r.ID, err)
	}
	a := model.Account{
		ID: r.ID, DisplayName: r.DisplayName, Currency: r.Currency,
		OpeningDate: opening, FXEnabled: r.FXEnabled,
	}
	switch r.Type {
	case "asset":
		a.Type = model.AccountAsset
	case "liability":
		a.Type = model.AccountLiability
	}
	if r.OpeningBalance != nil {
		bal, err := money.Parse(*r.OpeningBalance, r.Currency)
		if err != nil {
			return model.Account{}, fmt.Errorf("account %d: parse opening_balance: %w", r.ID, err)
		}
		a.OpeningBalance = &bal
	}
	return a, nil
}

type catRecord struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

func toCatRecord(c model.Category) catRecord {
	return catRecord{ID: c.ID, Title: c.Title, ParentID: c.ParentID}
}

func fromCatRecord(r catRecord) model.Category {
	return model.Category{ID: r.ID, Title: r.Title, ParentID: r.ParentID}
}
