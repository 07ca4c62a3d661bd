package transfer

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"ledgersync/core/model"
	"ledgersync/pkg/money"
)

// spatialIndex buckets transactions by (bucket_date, bucket_amount).
// Candidate search returns the transactions in the three date buckets
// around a transaction, of any amount, falling back to a sorted linear
// scan when a bucket grows past the degeneracy threshold.
type spatialIndex struct {
	cfg       Config
	exact     map[bucketKey][]model.Transaction // keyed on round(amount, 2)
	fuzzy     map[bucketKey][]model.Transaction // keyed on round(amount, 0), for FX lookup
	byDate    []model.Transaction               // sorted by date, fallback scan
	degenerate bool
}

type bucketKey struct {
	date   int64
	amount string
}

func bucketDate(t model.Transaction, dTotalDays int) int64 {
	days := t.Date.Unix() / 86400
	return int64(math.Floor(float64(days) / float64(dTotalDays)))
}

func bucketAmountExact(t model.Transaction) string {
	return t.Amount.Value.Abs().Round(2).String()
}

func bucketAmountFuzzy(t model.Transaction) string {
	return t.Amount.Value.Abs().Round(0).String()
}

func newSpatialIndex(txns []model.Transaction, cfg Config) *spatialIndex {
	idx := &spatialIndex{
		cfg:   cfg,
		exact: make(map[bucketKey][]model.Transaction),
		fuzzy: make(map[bucketKey][]model.Transaction),
	}
	dTotal := cfg.DSuspectedDays
	if dTotal <= 0 {
		dTotal = 4
	}
	for _, t := range txns {
		db := bucketDate(t, dTotal)
		ek := bucketKey{date: db, amount: bucketAmountExact(t)}
		fk := bucketKey{date: db, amount: bucketAmountFuzzy(t)}
		idx.exact[ek] = append(idx.exact[ek], t)
		idx.fuzzy[fk] = append(idx.fuzzy[fk], t)
		if len(idx.exact[ek]) > cfg.BucketThreshold || len(idx.fuzzy[fk]) > cfg.BucketThreshold {
			idx.degenerate = true
		}
	}
	idx.byDate = append(idx.byDate, txns...)
	sort.Slice(idx.byDate, func(i, j int) bool { return idx.byDate[i].Date.Before(idx.byDate[j].Date) })
	return idx
}

// candidates returns every transaction worth testing against t: in the
// common case, everything in the date buckets db-1, db and db+1 whatever
// its amount bucket (every bucket key is visited and filtered by date),
// or every transaction within a symmetric date window via binary search
// when a bucket is degenerate.
func (idx *spatialIndex) candidates(t model.Transaction) []model.Transaction {
	if idx.degenerate {
		return idx.fallbackScan(t)
	}
	dTotal := idx.cfg.DSuspectedDays
	if dTotal <= 0 {
		dTotal = 4
	}
	db := bucketDate(t, dTotal)
	seen := make(map[int64]bool)
	var out []model.Transaction
	for _, bk := range []int64{db - 1, db, db + 1} {
		for key, bucket := range idx.exact {
			if key.date != bk {
				continue
			}
			appendUnseen(&out, seen, bucket)
		}
		for key, bucket := range idx.fuzzy {
			if key.date != bk {
				continue
			}
			appendUnseen(&out, seen, bucket)
		}
	}
	return out
}

func appendUnseen(out *[]model.Transaction, seen map[int64]bool, bucket []model.Transaction) {
	for _, c := range bucket {
		if !seen[c.ID] {
			seen[c.ID] = true
			*out = append(*out, c)
		}
	}
}

func (idx *spatialIndex) fallbackScan(t model.Transaction) []model.Transaction {
	windowDays := idx.cfg.DSuspectedDays
	lo := sort.Search(len(idx.byDate), func(i int) bool {
		return !idx.byDate[i].Date.Before(t.Date.AddDate(0, 0, -windowDays))
	})
	hi := sort.Search(len(idx.byDate), func(i int) bool {
		return idx.byDate[i].Date.After(t.Date.AddDate(0, 0, windowDays))
	})
	return idx.byDate[lo:hi]
}

// bestMatch finds t's best unpaired candidate: smallest absolute date
// delta, tie-broken by smallest id, among all candidates that classify
// as confirmed or suspected.
func (idx *spatialIndex) bestMatch(t model.Transaction, paired map[int64]bool, accounts map[int64]model.Account, cfg Config) (model.Transaction, []Reason, bool) {
	type scored struct {
		txn     model.Transaction
		reasons []Reason
		delta   int
	}
	var best *scored
	for _, c := range idx.candidates(t) {
		if c.ID == t.ID || paired[c.ID] {
			continue
		}
		ok, reasons := classifyPair(t, c, accounts, cfg)
		if !ok {
			continue
		}
		delta := deltaDays(t, c)
		cand := scored{txn: c, reasons: reasons, delta: delta}
		if best == nil || cand.delta < best.delta || (cand.delta == best.delta && cand.txn.ID < best.txn.ID) {
			best = &cand
		}
	}
	if best == nil {
		return model.Transaction{}, nil, false
	}
	return best.txn, best.reasons, true
}

func deltaDays(a, b model.Transaction) int {
	d := a.Date.Sub(b.Date).Hours() / 24
	if d < 0 {
		d = -d
	}
	return int(d + 0.5)
}

// classifyPair tests the confirmed/suspected rules between t and c,
// returning ok=true with nil reasons for a confirmed pair, or ok=true
// with a non-empty reason list for a suspected one.
func classifyPair(t, c model.Transaction, accounts map[int64]model.Account, cfg Config) (ok bool, reasons []Reason) {
	if t.AccountID == c.AccountID {
		return false, nil
	}
	delta := deltaDays(t, c)
	oppositeSign := t.Amount.Sign() != 0 && t.Amount.Sign() == -c.Amount.Sign()
	exactAmount := t.Amount.Value.Abs().Equal(c.Amount.Value.Abs())

	if oppositeSign && exactAmount && delta <= cfg.DConfirmedDays {
		return true, nil
	}

	if !oppositeSign && t.Amount.Sign() != 0 && c.Amount.Sign() != 0 {
		reasons = append(reasons, ReasonSameDirection)
	}
	if fxEligible(t, c, accounts) && !exactAmount {
		pct := decimal.NewFromFloat(cfg.PFXPercent)
		if money.WithinPercent(t.Amount, c.Amount, pct) {
			reasons = append(reasons, ReasonFXMismatch)
		}
	}
	if delta > cfg.DConfirmedDays && delta <= cfg.DSuspectedDays {
		reasons = append(reasons, reasonDateDelay(delta))
	}
	if transferDescriptionRegexp.MatchString(t.Payee) || transferDescriptionRegexp.MatchString(c.Payee) {
		reasons = append(reasons, ReasonDescriptionBased)
	}

	if len(reasons) == 0 {
		return false, nil
	}
	return true, reasons
}

func fxEligible(t, c model.Transaction, accounts map[int64]model.Account) bool {
	if a, ok := accounts[t.AccountID]; ok && a.FXEnabled {
		return true
	}
	if a, ok := accounts[c.AccountID]; ok && a.FXEnabled {
		return true
	}
	return false
}

