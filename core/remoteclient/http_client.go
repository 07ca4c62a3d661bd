package remoteclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"ledgersync/core/model"
	"ledgersync/pkg/errkind"
	"ledgersync/pkg/idset"
	"ledgersync/pkg/money"
)

// HTTPClient is the production Client implementation: it talks to the
// remote ledger service's paginated transaction-list endpoint and its
// single-transaction PATCH endpoint, bounded by a token-bucket rate
// limiter and retried with backoff on 429/5xx per the concurrency
// design's rate-limiting policy.
type HTTPClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Log        *logrus.Logger
	MaxRetries int
	PageSize   int
}

// NewHTTPClient builds an HTTPClient with sensible defaults: a 4
// req/sec token bucket (configurable by callers via Limiter), 3 retries,
// and a 100-item page size.
func NewHTTPClient(baseURL, token string, log *logrus.Logger) *HTTPClient {
	return &HTTPClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Limiter:    rate.NewLimiter(rate.Limit(4), 4),
		Log:        log,
		MaxRetries: 3,
		PageSize:   100,
	}
}

type transactionDTO struct {
	ID             int64    `json:"id"`
	Date           string   `json:"date"`
	Amount         string   `json:"amount"`
	Currency       string   `json:"currency"`
	AccountID      int64    `json:"account_id"`
	CategoryID     *int64   `json:"category_id,omitempty"`
	Payee          string   `json:"payee"`
	Narration      string   `json:"narration"`
	Labels         []string `json:"labels"`
	NeedsReview    bool     `json:"needs_review"`
	IsTransfer     bool     `json:"is_transfer"`
	PairedID       *int64   `json:"paired_id,omitempty"`
	SuspectReason  *string  `json:"suspect_reason,omitempty"`
	ClosingBalance *string  `json:"closing_balance,omitempty"`
	UpdatedAt      string   `json:"updated_at"`
}

type listTransactionsResponse struct {
	Transactions []transactionDTO `json:"transactions"`
	NextPage     string           `json:"next_page,omitempty"`
}

func toModel(dto transactionDTO) (model.Transaction, error) {
	date, err := time.Parse("2006-01-02", dto.Date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parse date %q: %w", dto.Date, err)
	}
	amount, err := money.Parse(dto.Amount, dto.Currency)
	if err != nil {
		return model.Transaction{}, err
	}
	updatedAt, err := time.Parse(time.RFC3339, dto.UpdatedAt)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parse updated_at %q: %w", dto.UpdatedAt, err)
	}
	var closing *money.Amount
	if dto.ClosingBalance != nil {
		a, err := money.Parse(*dto.ClosingBalance, dto.Currency)
		if err != nil {
			return model.Transaction{}, err
		}
		closing = &a
	}
	labels := labelSet(dto.Labels)
	return model.Transaction{
		ID: dto.ID, Date: date, Amount: amount, AccountID: dto.AccountID,
		CategoryID: dto.CategoryID, Payee: dto.Payee, Narration: dto.Narration,
		Labels: labels, NeedsReview: dto.NeedsReview, IsTransfer: dto.IsTransfer,
		PairedID: dto.PairedID, SuspectReason: dto.SuspectReason,
		ClosingBalance: closing, UpdatedAt: updatedAt,
	}, nil
}

// ListTransactions pages through the remote's transaction-list endpoint
// until a response carries no NextPage token.
func (c *HTTPClient) ListTransactions(ctx context.Context, opts ListOptions) ([]model.Transaction, error) {
	var out []model.Transaction
	page := ""
	for {
		resp, err := c.listPage(ctx, opts, page)
		if err != nil {
			return nil, err
		}
		for _, dto := range resp.Transactions {
			txn, err := toModel(dto)
			if err != nil {
				return nil, errkind.Wrap(errkind.Remote, err, "decode transaction from remote")
			}
			out = append(out, txn)
		}
		if resp.NextPage == "" {
			return out, nil
		}
		page = resp.NextPage
	}
}

func (c *HTTPClient) listPage(ctx context.Context, opts ListOptions, page string) (listTransactionsResponse, error) {
	q := fmt.Sprintf("%s/transactions?page_size=%d", c.BaseURL, c.PageSize)
	if opts.UpdatedSince != nil {
		q += "&updated_since=" + opts.UpdatedSince.Format(time.RFC3339)
	}
	if !opts.Window.From.IsZero() {
		q += "&from=" + opts.Window.From.Format("2006-01-02")
	}
	if !opts.Window.To.IsZero() {
		q += "&to=" + opts.Window.To.Format("2006-01-02")
	}
	if opts.ID != nil {
		q += "&id=" + strconv.FormatInt(*opts.ID, 10)
	}
	if page != "" {
		q += "&page=" + page
	}

	var out listTransactionsResponse
	err := c.doWithRetry(ctx, http.MethodGet, q, nil, &out)
	return out, err
}

func (c *HTTPClient) ListAccounts(ctx context.Context) ([]model.Account, error) {
	var dtos []struct {
		ID             int64   `json:"id"`
		DisplayName    string  `json:"display_name"`
		Type           string  `json:"type"`
		Currency       string  `json:"currency"`
		OpeningDate    string  `json:"opening_date"`
		OpeningBalance *string `json:"opening_balance,omitempty"`
		FXEnabled      bool    `json:"fx_enabled"`
	}
	if err := c.doWithRetry(ctx, http.MethodGet, c.BaseURL+"/accounts", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]model.Account, 0, len(dtos))
	for _, d := range dtos {
		opening, err := time.Parse("2006-01-02", d.OpeningDate)
		if err != nil {
			return nil, errkind.Wrap(errkind.Remote, err, "decode account opening_date")
		}
		acct := model.Account{
			ID: d.ID, DisplayName: d.DisplayName, Currency: d.Currency,
			OpeningDate: opening, FXEnabled: d.FXEnabled,
		}
		switch d.Type {
		case "asset":
			acct.Type = model.AccountAsset
		case "liability":
			acct.Type = model.AccountLiability
		}
		if d.OpeningBalance != nil {
			a, err := money.Parse(*d.OpeningBalance, d.Currency)
			if err != nil {
				return nil, err
			}
			acct.OpeningBalance = &a
		}
		out = append(out, acct)
	}
	return out, nil
}

func (c *HTTPClient) ListCategories(ctx context.Context) ([]model.Category, error) {
	var dtos []struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		ParentID *int64 `json:"parent_id,omitempty"`
	}
	if err := c.doWithRetry(ctx, http.MethodGet, c.BaseURL+"/categories", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]model.Category, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, model.Category{ID: d.ID, Title: d.Title, ParentID: d.ParentID})
	}
	return out, nil
}

func (c *HTTPClient) PatchTransaction(ctx context.Context, id int64, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return errkind.Wrap(errkind.Remote, err, "encode patch body")
	}
	url := fmt.Sprintf("%s/transactions/%d", c.BaseURL, id)
	return c.doWithRetry(ctx, http.MethodPatch, url, body, nil)
}

// doWithRetry executes one HTTP call, honouring the rate limiter and
// retrying up to MaxRetries times on 429 (respecting Retry-After) or 5xx.
func (c *HTTPClient) doWithRetry(ctx context.Context, method, url string, body []byte, out any) error {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.MaxRetries))
	attempt := 0
	idempotencyKey := uuid.NewString() // shared by every retry of this call
	operation := func() error {
		attempt++
		if err := c.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(errkind.Wrap(errkind.Remote, err, "rate limiter wait"))
		}

		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return backoff.Permanent(errkind.Wrap(errkind.Remote, err, "build request"))
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("Idempotency-Key", idempotencyKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err // transient network error: retry
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := parseRetryAfter(resp.Header.Get("Retry-After"))
			if c.Log != nil {
				c.Log.WithFields(logrus.Fields{"attempt": attempt, "wait": wait}).Warn("remote rate limited, backing off")
			}
			time.Sleep(wait)
			return fmt.Errorf("rate limited (429)")
		case resp.StatusCode >= 500:
			return fmt.Errorf("remote server error: %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			data, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(errkind.New(errkind.Remote, fmt.Sprintf("remote error %d: %s", resp.StatusCode, string(data))))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(errkind.Wrap(errkind.Remote, err, "decode response"))
			}
		}
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return errkind.Wrap(errkind.Remote, err, fmt.Sprintf("%s %s failed after retries", method, url))
	}
	return nil
}

func parseRetryAfter(h string) time.Duration {
	if h == "" {
		return time.Second
	}
	if secs, err := strconv.Atoi(h); err == nil {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(h); err == nil {
		return time.Until(when)
	}
	return time.Second
}

func labelSet(items []string) idset.Set[string] {
	return idset.New(items...)
}
