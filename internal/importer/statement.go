// Package importer turns parsed statement rows into ledger transactions.
package importer

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bean-flow/internal/model"
)

// ErrMalformedRow marks a statement row that cannot be converted.
var ErrMalformedRow = errors.New("malformed statement row")

// Row is one transaction line extracted from a statement.
type Row struct {
	When             *model.Moment
	Payee            string
	Description      string
	TradeArea        string // raw trade-area code; blank means the settlement currency
	TradeAmount      decimal.Decimal
	SettlementAmount decimal.Decimal
}

// Date returns the row's calendar date.
func (r Row) Date() time.Time {
	if r.When == nil {
		return time.Time{}
	}
	return model.Day(r.When.Time)
}

// Statement is a parsed statement for one origin account.
type Statement struct {
	ClosingDate    time.Time
	ClosingBalance *decimal.Decimal // ledger-signed balance of Account, nil when unknown
	Source         string
	Account        string
	Currency       string // settlement currency; defaults to the local currency
	Rows           []Row
}

// Result is the outcome of importing one statement.
type Result struct {
	Balance      *model.Balance
	Source       string
	Account      string
	Transactions []*model.Transaction
	Duplicates   int
}
