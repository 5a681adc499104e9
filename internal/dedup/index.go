// Package dedup detects transactions that are already present in the ledger.
//
// An Index is seeded with the ledger's existing transactions. Each imported
// transaction is checked against it with FindDuplicate:
//   - the account must match,
//   - the absolute amount must match within Config.Tolerance,
//   - the date must be within Config.Window days of the candidate,
//   - the existing entry must not already have been claimed.
//
// Candidates that are not duplicates are held as pending until Apply, so two
// identical purchases on one statement are both kept while a later statement
// that repeats them is suppressed.
//
// Example usage:
//
//	idx := dedup.New(existing, dedup.DefaultConfig())
//	for _, txn := range drafts {
//		if !idx.FindDuplicate(txn, settlement, nil, origin) {
//			accepted = append(accepted, txn)
//		}
//	}
//	idx.Apply()
package dedup

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bean-flow/internal/model"
)

// Config holds matching tolerances.
type Config struct {
	Tolerance decimal.Decimal // absolute amount difference still considered equal
	Window    int             // days either side of the candidate date
}

// DefaultConfig returns a two day window and half-cent tolerance.
func DefaultConfig() Config {
	return Config{
		Tolerance: decimal.New(5, -3),
		Window:    2,
	}
}

type known struct {
	entry    model.Entry
	seq      int
	consumed bool
}

// Index holds the known and pending ledger entries of one ledger scope.
// It is not safe for concurrent use.
type Index struct {
	byAccount map[string][]*known
	pending   []model.Entry
	cfg       Config
	seq       int
}

// New seeds an index from existing ledger transactions. Transactions whose
// postings cannot be balanced are skipped.
func New(existing []*model.Transaction, cfg Config) *Index {
	if cfg.Window < 0 {
		cfg.Window = 0
	}
	if cfg.Tolerance.IsNegative() {
		cfg.Tolerance = cfg.Tolerance.Neg()
	}

	idx := &Index{
		byAccount: make(map[string][]*known),
		cfg:       cfg,
	}

	for _, txn := range existing {
		entries, err := txn.Entries()
		if err != nil {
			slog.Warn("Skipping unbalanced ledger transaction",
				"date", txn.Date.Format("2006-01-02"),
				"payee", txn.Payee,
				"error", err)
			continue
		}
		for _, e := range entries {
			idx.add(e)
		}
	}

	return idx
}

// Seed adds raw entries to the known set.
func (idx *Index) Seed(entries ...model.Entry) {
	for _, e := range entries {
		idx.add(e)
	}
}

func (idx *Index) add(e model.Entry) {
	idx.seq++
	idx.byAccount[e.Account] = append(idx.byAccount[e.Account], &known{entry: e, seq: idx.seq})
}

// FindDuplicate reports whether txn already exists on account. amount is
// the settlement amount of txn's posting on account and hint, when set,
// replaces txn.Date as the date to compare.
//
// A match claims the existing entry so it cannot match again. Otherwise the
// candidate is queued and becomes matchable after Apply.
func (idx *Index) FindDuplicate(txn *model.Transaction, amount model.Amount, hint *time.Time, account string) bool {
	date := txn.Date
	if hint != nil {
		date = *hint
	}

	if best := idx.best(account, amount, date); best != nil {
		best.consumed = true
		slog.Info("Skipping duplicate transaction",
			"date", date.Format("2006-01-02"),
			"payee", txn.Payee,
			"account", account,
			"amount", amount.String(),
			"matched_date", best.entry.Date.Format("2006-01-02"))
		return true
	}

	counterparty := ""
	for _, p := range txn.Postings {
		if p.Account != account {
			counterparty = p.Account
			break
		}
	}
	idx.pending = append(idx.pending, model.Entry{
		Date:         date,
		Account:      account,
		Counterparty: counterparty,
		Amount:       amount,
	})
	return false
}

// best returns the unclaimed entry closest in date, breaking ties by
// insertion order.
func (idx *Index) best(account string, amount model.Amount, date time.Time) *known {
	target := amount.Number.Abs()

	var best *known
	bestDiff := 0
	for _, k := range idx.byAccount[account] {
		if k.consumed {
			continue
		}
		if k.entry.Amount.Currency != "" && amount.Currency != "" && k.entry.Amount.Currency != amount.Currency {
			continue
		}
		if k.entry.Amount.Number.Abs().Sub(target).Abs().GreaterThan(idx.cfg.Tolerance) {
			continue
		}

		diff := model.DaysBetween(date, k.entry.Date)
		if diff < 0 {
			diff = -diff
		}
		if diff > idx.cfg.Window {
			continue
		}

		if best == nil || diff < bestDiff || (diff == bestDiff && k.seq < best.seq) {
			best = k
			bestDiff = diff
		}
	}
	return best
}

// Apply moves pending entries into the known set and returns how many were
// moved. Calling it with nothing pending is a no-op.
func (idx *Index) Apply() int {
	n := len(idx.pending)
	for _, e := range idx.pending {
		idx.add(e)
	}
	idx.pending = idx.pending[:0]
	return n
}

// Known returns the number of entries that can still be matched.
func (idx *Index) Known() int {
	n := 0
	for _, entries := range idx.byAccount {
		for _, k := range entries {
			if !k.consumed {
				n++
			}
		}
	}
	return n
}

// Pending returns the number of accepted candidates awaiting Apply.
func (idx *Index) Pending() int {
	return len(idx.pending)
}
