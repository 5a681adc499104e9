package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction flags.
const (
	FlagCleared = "*"
	FlagPending = "!"
)

// Errors returned when a transaction cannot be balanced.
var (
	ErrMultipleImplicit = errors.New("more than one posting without an amount")
	ErrMixedCurrencies  = errors.New("cannot infer amount across several currencies")
	ErrUnbalanced       = errors.New("postings do not balance")
)

// Amount is a signed quantity of a currency.
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

// NewAmount parses a decimal string into an Amount.
func NewAmount(number, currency string) (Amount, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(number), ",", ""))
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", number, err)
	}
	return Amount{Number: d, Currency: currency}, nil
}

// Neg returns the amount with its sign flipped.
func (a Amount) Neg() Amount {
	return Amount{Number: a.Number.Neg(), Currency: a.Currency}
}

func (a Amount) String() string {
	return a.Number.StringFixed(2) + " " + a.Currency
}

// Posting is one leg of a transaction. A nil Units marks the implicit leg
// whose amount balances the others.
type Posting struct {
	Units   *Amount
	Price   *Amount // per-unit price
	Account string
}

// Weight returns the amount this posting contributes to the balance,
// converted through its price when one is set.
func (p Posting) Weight() (Amount, bool) {
	if p.Units == nil {
		return Amount{}, false
	}
	if p.Price == nil {
		return *p.Units, true
	}
	return Amount{
		Number:   p.Units.Number.Mul(p.Price.Number),
		Currency: p.Price.Currency,
	}, true
}

// Transaction is a dated double-entry record.
type Transaction struct {
	Date      time.Time
	Flag      string
	Payee     string
	Narration string
	Tags      []string
	Postings  []Posting
}

// AddPosting appends a posting on account. Pass nil units for the implicit leg.
func (t *Transaction) AddPosting(account string, units, price *Amount) {
	t.Postings = append(t.Postings, Posting{Account: account, Units: units, Price: price})
}

// Weights sums posting weights per currency, ignoring the implicit leg.
func (t *Transaction) Weights() map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, p := range t.Postings {
		w, ok := p.Weight()
		if !ok {
			continue
		}
		sums[w.Currency] = sums[w.Currency].Add(w.Number)
	}
	return sums
}

// Complete returns a copy of the postings with the implicit leg filled in.
func (t *Transaction) Complete() ([]Posting, error) {
	implicit := -1
	for i, p := range t.Postings {
		if p.Units != nil {
			continue
		}
		if implicit >= 0 {
			return nil, ErrMultipleImplicit
		}
		implicit = i
	}

	weights := t.Weights()
	out := make([]Posting, len(t.Postings))
	copy(out, t.Postings)

	if implicit < 0 {
		for cur, sum := range weights {
			if !sum.IsZero() {
				return nil, fmt.Errorf("%w: %s %s", ErrUnbalanced, sum.String(), cur)
			}
		}
		return out, nil
	}

	if len(weights) != 1 {
		return nil, ErrMixedCurrencies
	}
	for cur, sum := range weights {
		out[implicit].Units = &Amount{Number: sum.Neg(), Currency: cur}
	}
	return out, nil
}

// Entries expands the transaction into one dedup entry per posting.
// The counterparty of each entry is the first other account in the
// transaction.
func (t *Transaction) Entries() ([]Entry, error) {
	postings, err := t.Complete()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(postings))
	for i, p := range postings {
		counterparty := ""
		for j, other := range postings {
			if j != i && other.Account != p.Account {
				counterparty = other.Account
				break
			}
		}
		// Priced legs are compared in the settlement currency.
		w, _ := p.Weight()
		entries = append(entries, Entry{
			Date:         t.Date,
			Account:      p.Account,
			Counterparty: counterparty,
			Amount:       w,
		})
	}
	return entries, nil
}

// String renders the transaction in ledger syntax.
func (t *Transaction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %q %q", t.Date.Format("2006-01-02"), t.Flag, t.Payee, t.Narration)
	tags := append([]string(nil), t.Tags...)
	sort.Strings(tags)
	for _, tag := range tags {
		b.WriteString(" #" + tag)
	}
	for _, p := range t.Postings {
		b.WriteString("\n  " + p.Account)
		if p.Units != nil {
			b.WriteString("  " + p.Units.String())
		}
		if p.Price != nil {
			b.WriteString(" @ " + p.Price.Number.String() + " " + p.Price.Currency)
		}
	}
	return b.String()
}

// Balance asserts an account's total balance at the start of Date.
type Balance struct {
	Date    time.Time
	Account string
	Amount  Amount
}

func (b *Balance) String() string {
	return fmt.Sprintf("%s balance %s  %s", b.Date.Format("2006-01-02"), b.Account, b.Amount.String())
}

// Entry is one ledger line as seen by duplicate detection.
type Entry struct {
	Date         time.Time
	Account      string
	Counterparty string
	Amount       Amount
}
