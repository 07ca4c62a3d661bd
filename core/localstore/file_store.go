package localstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"ledgersync/core/model"
)

// Layout selects which of the two archive layouts a FileStore persists
// to: Hierarchical splits transactions into one file per month under a
// directory tree (the layout a large multi-year archive would use so a
// single month's edits don't rewrite the whole history), SingleFile
// keeps everything in one file (the layout a small personal archive
// would use).
type Layout int

const (
	Hierarchical Layout = iota
	SingleFile
)

// FileStore is a Store backed by line-delimited JSON files on disk. It
// holds the full archive in memory once loaded and rewrites only the
// shards touched by a save, the same lazy-load-full-rewrite-on-touch
// strategy a hand-edited text ledger needs because there is no
// incremental index to consult.
type FileStore struct {
	root   string // directory (Hierarchical) or file path (SingleFile)
	layout Layout

	mu     sync.Mutex
	loaded bool
	lock   *flock.Flock

	accounts     map[int64]model.Account
	categories   map[int64]model.Category
	transactions map[int64]model.Transaction
	dirtyMonths  map[string]bool // hierarchical only: "YYYY-MM" shards to rewrite
}

// NewHierarchicalStore opens (but does not yet read) an archive rooted
// at dir, split into monthly transaction shards.
func NewHierarchicalStore(dir string) *FileStore {
	return &FileStore{
		root: dir, layout: Hierarchical,
		accounts: make(map[int64]model.Account), categories: make(map[int64]model.Category),
		transactions: make(map[int64]model.Transaction), dirtyMonths: make(map[string]bool),
	}
}

// NewSingleFileStore opens (but does not yet read) an archive held
// entirely in the single file at path.
func NewSingleFileStore(path string) *FileStore {
	return &FileStore{
		root: path, layout: SingleFile,
		accounts: make(map[int64]model.Account), categories: make(map[int64]model.Category),
		transactions: make(map[int64]model.Transaction), dirtyMonths: make(map[string]bool),
	}
}

func (s *FileStore) primaryPath() string {
	if s.layout == Hierarchical {
		return filepath.Join(s.root, "primary.json")
	}
	return s.root
}

// ChangelogPath returns the sibling "<primary>.log" file, per the
// archive layout's naming rule.
func (s *FileStore) ChangelogPath() string {
	ext := filepath.Ext(s.primaryPath())
	return s.primaryPath()[:len(s.primaryPath())-len(ext)] + ".log"
}

func (s *FileStore) lockPath() string { return s.ChangelogPath() + ".lock" }

// Lock acquires the archive's single-writer file lock via an exclusive
// flock on a sibling lock file, so a concurrent ledgersync process on
// the same archive fails to acquire the lock (an error is returned at
// once) rather than corrupting it.
func (s *FileStore) Lock() error {
	if s.layout == Hierarchical {
		if err := os.MkdirAll(s.root, 0o755); err != nil {
			return fmt.Errorf("create archive directory: %w", err)
		}
	}
	s.lock = flock.New(s.lockPath())
	locked, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire archive lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("archive %s is locked by another process", s.root)
	}
	return nil
}

// Unlock releases the lock acquired by Lock. Safe to call even if Lock
// was never successfully acquired.
func (s *FileStore) Unlock() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	if err := s.loadPrimary(); err != nil {
		return err
	}
	if err := s.loadTransactions(); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

type primaryFile struct {
	Accounts     []acctRecord `json:"accounts"`
	Categories   []catRecord  `json:"categories"`
	Transactions []txnRecord  `json:"transactions,omitempty"` // single-file layout only
}

func (s *FileStore) loadPrimary() error {
	data, err := os.ReadFile(s.primaryPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.primaryPath(), err)
	}
	var pf primaryFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse %s: %w", s.primaryPath(), err)
	}
	for _, r := range pf.Accounts {
		a, err := fromAcctRecord(r)
		if err != nil {
			return err
		}
		s.accounts[a.ID] = a
	}
	for _, r := range pf.Categories {
		s.categories[r.ID] = fromCatRecord(r)
	}
	if s.layout == SingleFile {
		for _, r := range pf.Transactions {
			t, err := fromRecord(r)
			if err != nil {
				return err
			}
			s.transactions[t.ID] = t
		}
	}
	return nil
}

func (s *FileStore) loadTransactions() error {
	if s.layout == SingleFile {
		return nil // already loaded from the primary file
	}
	matches, err := filepath.Glob(filepath.Join(s.root, "*", "*.jsonl"))
	if err != nil {
		return fmt.Errorf("scan transaction shards: %w", err)
	}
	for _, path := range matches {
		if err := s.loadShard(path); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) loadShard(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open shard %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r txnRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return fmt.Errorf("parse shard %s: %w", path, err)
		}
		t, err := fromRecord(r)
		if err != nil {
			return err
		}
		s.transactions[t.ID] = t
	}
	return scanner.Err()
}

func monthKey(t time.Time) string { return t.Format("2006-01") }

func (s *FileStore) shardPath(month string) string {
	year := month[:4]
	return filepath.Join(s.root, year, month+".jsonl")
}

// ListTransactions returns transactions matching opts in ascending id
// order.
func (s *FileStore) ListTransactions(opts ListOptions) ([]model.Transaction, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Transaction
	for _, t := range s.transactions {
		if opts.ID != nil && t.ID != *opts.ID {
			continue
		}
		if opts.UpdatedSince != nil && !t.UpdatedAt.After(*opts.UpdatedSince) {
			continue
		}
		if !opts.Window.From.IsZero() && t.Date.Before(opts.Window.From) {
			continue
		}
		if !opts.Window.To.IsZero() && t.Date.After(opts.Window.To) {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FileStore) ListAccounts() ([]model.Account, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FileStore) ListCategories() ([]model.Category, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveTransaction writes t into memory and marks its shard dirty, then
// flushes immediately: the archive is small enough (a personal ledger,
// not a ledger service) that rewrite-on-write is simpler than batching.
func (s *FileStore) SaveTransaction(t model.Transaction) error {
	if err := s.load(); err != nil {
		return err
	}
	s.mu.Lock()
	s.transactions[t.ID] = t.Clone()
	if s.layout == Hierarchical {
		s.dirtyMonths[monthKey(t.Date)] = true
	}
	s.mu.Unlock()
	return s.flush()
}

func (s *FileStore) SaveAccount(a model.Account) error {
	if err := s.load(); err != nil {
		return err
	}
	s.mu.Lock()
	s.accounts[a.ID] = a
	s.mu.Unlock()
	return s.flush()
}

func (s *FileStore) SaveCategory(c model.Category) error {
	if err := s.load(); err != nil {
		return err
	}
	s.mu.Lock()
	s.categories[c.ID] = c
	s.mu.Unlock()
	return s.flush()
}

func (s *FileStore) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.layout == SingleFile {
		return s.flushSingleFileLocked()
	}
	return s.flushHierarchicalLocked()
}

func (s *FileStore) flushSingleFileLocked() error {
	pf := primaryFile{}
	for _, a := range sortedAccounts(s.accounts) {
		pf.Accounts = append(pf.Accounts, toAcctRecord(a))
	}
	for _, c := range sortedCategories(s.categories) {
		pf.Categories = append(pf.Categories, toCatRecord(c))
	}
	for _, t := range sortedTransactions(s.transactions) {
		pf.Transactions = append(pf.Transactions, toRecord(t))
	}
	return writeJSONAtomic(s.primaryPath(), pf)
}

func (s *FileStore) flushHierarchicalLocked() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}
	pf := primaryFile{}
	for _, a := range sortedAccounts(s.accounts) {
		pf.Accounts = append(pf.Accounts, toAcctRecord(a))
	}
	for _, c := range sortedCategories(s.categories) {
		pf.Categories = append(pf.Categories, toCatRecord(c))
	}
	if err := writeJSONAtomic(s.primaryPath(), pf); err != nil {
		return err
	}

	byMonth := make(map[string][]model.Transaction)
	for _, t := range s.transactions {
		byMonth[monthKey(t.Date)] = append(byMonth[monthKey(t.Date)], t)
	}
	for month := range s.dirtyMonths {
		txns := byMonth[month]
		sort.Slice(txns, func(i, j int) bool { return txns[i].ID < txns[j].ID })
		if err := s.writeShard(month, txns); err != nil {
			return err
		}
	}
	s.dirtyMonths = make(map[string]bool)
	return nil
}

func (s *FileStore) writeShard(month string, txns []model.Transaction) error {
	path := s.shardPath(month)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create shard directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create shard %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, t := range txns {
		line, err := json.Marshal(toRecord(t))
		if err != nil {
			f.Close()
			return fmt.Errorf("encode transaction %d: %w", t.ID, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			f.Close()
			return fmt.Errorf("write shard %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush shard %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close shard %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func sortedAccounts(m map[int64]model.Account) []model.Account {
	out := make([]model.Account, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedCategories(m map[int64]model.Category) []model.Category {
	out := make([]model.Category, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedTransactions(m map[int64]model.Transaction) []model.Transaction {
	out := make([]model.Transaction, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
