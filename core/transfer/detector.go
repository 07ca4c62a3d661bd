// Package transfer implements the transfer-pair detector: spatial-hash
// candidate search over a set of local transactions, confirmed/suspected
// classification, and the applier that annotates matched pairs.
package transfer

import (
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"ledgersync/core/model"
)

// Config holds the detector's tunable tolerances, all defaulted per the
// unchanged detection contract.
type Config struct {
	DConfirmedDays  int     // default 2
	DSuspectedDays  int     // default 4
	PFXPercent      float64 // default 5.0
	BucketThreshold int     // default 1000
	PatternThreshold int    // default 1: min suspected pairs sharing a reason to notify
	TransferCategory string // category title resolved once at detection start
}

// DefaultConfig returns the contract's documented defaults.
func DefaultConfig(transferCategory string) Config {
	return Config{
		DConfirmedDays: 2, DSuspectedDays: 4, PFXPercent: 5.0,
		BucketThreshold: 1000, PatternThreshold: 1,
		TransferCategory: transferCategory,
	}
}

const transferDescriptionPattern = `(?i)transfer|xfer|te?sf`

var transferDescriptionRegexp = regexp.MustCompile(transferDescriptionPattern)

// Reason is one classification reason attached to a suspected pair.
type Reason string

const (
	ReasonSameDirection   Reason = "same-direction"
	ReasonFXMismatch      Reason = "amount-mismatch-fx"
	ReasonDescriptionBased Reason = "description-based"
)

func reasonDateDelay(days int) Reason {
	return Reason("date-delay-" + itoa(days) + "d")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Pair is a detected transfer pair awaiting application.
type Pair struct {
	A, B      model.Transaction
	Confirmed bool
	Reasons   []Reason // empty for confirmed pairs
}

// Detector finds and applies transfer pairs against a fixed set of
// transactions and accounts, caching category-title resolution across
// calls within one process.
type Detector struct {
	cfg      Config
	accounts map[int64]model.Account
	catCache *lru.Cache[string, int64]
}

// NewDetector builds a Detector. accounts maps account id to Account,
// used to test the FX-enabled condition on suspected-pair reason
// amount-mismatch-fx.
func NewDetector(cfg Config, accounts map[int64]model.Account) (*Detector, error) {
	cache, err := lru.New[string, int64](64)
	if err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, accounts: accounts, catCache: cache}, nil
}

// resolveCategory resolves a category title to id via cats, caching the
// result so repeated Detect calls in one process don't re-walk the
// category tree.
func (d *Detector) resolveCategory(cats *model.CategoryForest, title string) (int64, bool) {
	if id, ok := d.catCache.Get(title); ok {
		return id, true
	}
	id, ok := cats.ByTitle(title)
	if ok {
		d.catCache.Add(title, id)
	}
	return id, ok
}

// Detect runs the candidate search and classification over txns,
// returning confirmed and suspected pairs plus any pattern
// notifications. Already-paired transactions whose counterpart is still
// present are skipped (idempotence).
func (d *Detector) Detect(txns []model.Transaction) (pairs []Pair, notifications []Notification) {
	present := make(map[int64]model.Transaction, len(txns))
	for _, t := range txns {
		present[t.ID] = t
	}

	var candidates []model.Transaction
	for _, t := range txns {
		if t.PairedID != nil {
			if _, ok := present[*t.PairedID]; ok {
				continue // already paired, counterpart present: idempotent skip
			}
		}
		candidates = append(candidates, t)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	index := newSpatialIndex(candidates, d.cfg)
	paired := make(map[int64]bool, len(candidates))
	reasonCounts := make(map[Reason]int)

	for _, t := range candidates {
		if paired[t.ID] {
			continue
		}
		best, reasons, ok := index.bestMatch(t, paired, d.accounts, d.cfg)
		if !ok {
			continue
		}
		paired[t.ID] = true
		paired[best.ID] = true
		confirmed := len(reasons) == 0
		pairs = append(pairs, Pair{A: t, B: best, Confirmed: confirmed, Reasons: reasons})
		if !confirmed {
			for _, r := range reasons {
				reasonCounts[r]++
			}
		}
	}

	for reason, count := range reasonCounts {
		if count >= d.cfg.PatternThreshold {
			notifications = append(notifications, Notification{Reason: reason, Count: count})
		}
	}
	sort.Slice(notifications, func(i, j int) bool { return notifications[i].Reason < notifications[j].Reason })
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].A.ID < pairs[j].A.ID })
	return pairs, notifications
}

// Notification is a pattern aggregate: many suspected pairs sharing one
// reason, surfaced so the user can adjust criteria.
type Notification struct {
	Reason Reason
	Count  int
}

// Apply mutates both sides of a pair in place per the application rule:
// confirmed pairs get is_transfer/paired_id/category_id on both sides;
// suspected pairs get only paired_id/suspect_reason.
func (d *Detector) Apply(p Pair, cats *model.CategoryForest) (a, b model.Transaction, err error) {
	a, b = p.A.Clone(), p.B.Clone()
	if p.Confirmed {
		catID, ok := d.resolveCategory(cats, d.cfg.TransferCategory)
		if !ok {
			return a, b, errUnknownTransferCategory(d.cfg.TransferCategory)
		}
		a.IsTransfer, b.IsTransfer = true, true
		a.PairedID, b.PairedID = idPtr(b.ID), idPtr(a.ID)
		a.CategoryID, b.CategoryID = idPtr(catID), idPtr(catID)
		a.SuspectReason, b.SuspectReason = nil, nil
		return a, b, nil
	}
	reason := joinReasons(p.Reasons)
	a.PairedID, b.PairedID = idPtr(b.ID), idPtr(a.ID)
	a.SuspectReason, b.SuspectReason = &reason, &reason
	return a, b, nil
}

func idPtr(v int64) *int64 { return &v }

func joinReasons(rs []Reason) string {
	strs := make([]string, len(rs))
	for i, r := range rs {
		strs[i] = string(r)
	}
	return strings.Join(strs, ",")
}

type unknownCategoryError string

func (e unknownCategoryError) Error() string { return "unknown transfer category: " + string(e) }

func errUnknownTransferCategory(title string) error { return unknownCategoryError(title) }
