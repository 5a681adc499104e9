package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bean-flow/internal/importer"
	"github.com/Veraticus/bean-flow/internal/model"
)

// StatementBuilder assembles statements for tests with a fluent API.
//
//	stmt := testutil.NewStatement("2024-03.eml", "Liabilities:CreditCard:Young").
//		Charge(testutil.Date(2024, 3, 1), "支付宝", "星巴克", "36.00").
//		ClosingBalance(testutil.Date(2024, 3, 18), "-36.00").
//		Build()
type StatementBuilder struct {
	stmt importer.Statement
}

// NewStatement starts a statement for account.
func NewStatement(source, account string) *StatementBuilder {
	return &StatementBuilder{stmt: importer.Statement{Source: source, Account: account}}
}

// Currency sets the settlement currency.
func (b *StatementBuilder) Currency(code string) *StatementBuilder {
	b.stmt.Currency = code
	return b
}

// Charge adds a day-precision row settled in the statement currency.
func (b *StatementBuilder) Charge(day time.Time, payee, description, amount string) *StatementBuilder {
	d := decimal.RequireFromString(amount)
	b.stmt.Rows = append(b.stmt.Rows, importer.Row{
		When:             model.OnDate(day),
		Payee:            payee,
		Description:      description,
		TradeAmount:      d,
		SettlementAmount: d,
	})
	return b
}

// ChargeAt adds a row whose time of day is known.
func (b *StatementBuilder) ChargeAt(when time.Time, payee, description, amount string) *StatementBuilder {
	b.Charge(when, payee, description, amount)
	b.stmt.Rows[len(b.stmt.Rows)-1].When = model.At(when)
	return b
}

// Foreign adds a row traded in another area and settled in the statement currency.
func (b *StatementBuilder) Foreign(day time.Time, payee, description, area, trade, settlement string) *StatementBuilder {
	b.stmt.Rows = append(b.stmt.Rows, importer.Row{
		When:             model.OnDate(day),
		Payee:            payee,
		Description:      description,
		TradeArea:        area,
		TradeAmount:      decimal.RequireFromString(trade),
		SettlementAmount: decimal.RequireFromString(settlement),
	})
	return b
}

// ClosingBalance sets the ledger-signed balance of the account on day.
func (b *StatementBuilder) ClosingBalance(day time.Time, amount string) *StatementBuilder {
	d := decimal.RequireFromString(amount)
	b.stmt.ClosingDate = day
	b.stmt.ClosingBalance = &d
	return b
}

// Build returns a copy of the statement.
func (b *StatementBuilder) Build() importer.Statement {
	stmt := b.stmt
	stmt.Rows = append([]importer.Row(nil), b.stmt.Rows...)
	return stmt
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
