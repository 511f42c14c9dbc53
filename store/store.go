// Package store persists the capital and trades documents as JSON files
// guarded by advisory file locks, so that a scheduler worker and a
// UI-triggered action in another process cannot corrupt each other's writes.
//
// Reads are deliberately forgiving: a missing or unparseable document yields
// its default and a log line, never an error. Writes report failures to the
// caller, who treats persistence as best-effort.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	capitalFile = "capital.json"
	tradesFile  = "virtual_trades.json"
)

// Store owns the on-disk documents. It is safe for concurrent use; each
// document read or write runs under a shared or exclusive file lock held
// for the duration of the I/O only.
type Store struct {
	dir     string
	log     *slog.Logger
	seed    CapitalBook
	capital *flock.Flock
	trades  *flock.Flock
}

// Open ensures dir exists and returns a store whose missing capital
// document defaults to seed.
func Open(dir string, seed CapitalBook, log *slog.Logger) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	if seed == nil {
		seed = DefaultCapitalBook(0, "")
	}
	return &Store{
		dir:     dir,
		log:     log,
		seed:    seed,
		capital: flock.New(filepath.Join(dir, capitalFile+".lock")),
		trades:  flock.New(filepath.Join(dir, tradesFile+".lock")),
	}, nil
}

// ReadCapital returns the capital book, or the seed book if the document is
// missing or corrupt. A missing document is materialized on disk so that
// other processes observe the same defaults.
func (s *Store) ReadCapital() CapitalBook {
	var book CapitalBook
	err := s.readJSON(capitalFile, s.capital, &book)
	if os.IsNotExist(err) {
		book = cloneBook(s.seed)
		if werr := s.WriteCapital(book); werr != nil {
			s.log.Warn("seed capital document", "error", werr)
		}
		return book
	}
	if err != nil || len(book) == 0 {
		if err != nil {
			s.log.Warn("read capital document, using defaults", "error", err)
		}
		return cloneBook(s.seed)
	}
	return book
}

// WriteCapital replaces the capital document.
func (s *Store) WriteCapital(book CapitalBook) error {
	return s.writeJSON(capitalFile, s.capital, book)
}

// ReadTrades returns the trades document in insertion order, or an empty
// slice if the document is missing or corrupt.
func (s *Store) ReadTrades() []Trade {
	var trades []Trade
	err := s.readJSON(tradesFile, s.trades, &trades)
	if err != nil && !os.IsNotExist(err) {
		s.log.Warn("read trades document, using empty set", "error", err)
		return nil
	}
	return trades
}

// WriteTrades replaces the trades document.
func (s *Store) WriteTrades(trades []Trade) error {
	if trades == nil {
		trades = []Trade{}
	}
	return s.writeJSON(tradesFile, s.trades, trades)
}

// readJSON decodes the named document under a shared lock.
func (s *Store) readJSON(name string, lk *flock.Flock, v any) error {
	if err := lk.RLock(); err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}
	defer func() {
		if err := lk.Unlock(); err != nil {
			s.log.Warn("release shared lock", "doc", name, "error", err)
		}
	}()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// writeJSON encodes v to a temp file and renames it over the named document,
// all under an exclusive lock. Rename keeps unlocked readers from ever
// observing a half-written file.
func (s *Store) writeJSON(name string, lk *flock.Flock, v any) error {
	if err := lk.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}
	defer func() {
		if err := lk.Unlock(); err != nil {
			s.log.Warn("release exclusive lock", "doc", name, "error", err)
		}
	}()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func cloneBook(book CapitalBook) CapitalBook {
	out := make(CapitalBook, len(book))
	for mode, acct := range book {
		out[mode] = acct
	}
	return out
}
