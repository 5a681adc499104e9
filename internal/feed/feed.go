// Package feed decodes statements that an external extractor has already
// pulled out of email or PDF documents.
//
// A feed document looks like:
//
//	{
//	  "source": "cmb-2024-03.eml",
//	  "account": "Liabilities:CreditCard:Young",
//	  "currency": "CNY",
//	  "closing_date": "2024-03-18",
//	  "closing_balance": "-1234.56",
//	  "rows": [
//	    {"time": "2024-03-01T12:34:00+08:00", "payee": "支付宝", "description": "星巴克",
//	     "trade_area": "CN", "trade_amount": "36.00", "settlement_amount": "36.00"}
//	  ]
//	}
package feed

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/bean-flow/internal/classify"
	"github.com/Veraticus/bean-flow/internal/importer"
	"github.com/Veraticus/bean-flow/internal/model"
)

// ErrInvalidFeed marks a feed document that cannot be turned into a statement.
var ErrInvalidFeed = errors.New("invalid statement feed")

type document struct {
	Source         string `json:"source"`
	Account        string `json:"account"`
	Currency       string `json:"currency"`
	ClosingDate    string `json:"closing_date"`
	ClosingBalance string `json:"closing_balance"`
	Rows           []row  `json:"rows"`
}

type row struct {
	Time             string `json:"time"`
	Payee            string `json:"payee"`
	Description      string `json:"description"`
	TradeArea        string `json:"trade_area"`
	TradeAmount      string `json:"trade_amount"`
	SettlementAmount string `json:"settlement_amount"`
}

// Decode reads one statement document. source is used when the document
// does not name its own.
func Decode(source string, r io.Reader) (importer.Statement, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return importer.Statement{}, fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}

	if doc.Source == "" {
		doc.Source = source
	}
	if strings.TrimSpace(doc.Account) == "" {
		return importer.Statement{}, fmt.Errorf("%w: %s has no account", ErrInvalidFeed, doc.Source)
	}

	stmt := importer.Statement{
		Source:   doc.Source,
		Account:  doc.Account,
		Currency: doc.Currency,
		Rows:     make([]importer.Row, 0, len(doc.Rows)),
	}

	if doc.ClosingBalance != "" {
		balance, err := parseDecimal(doc.ClosingBalance)
		if err != nil {
			return importer.Statement{}, fmt.Errorf("%w: closing balance: %v", ErrInvalidFeed, err)
		}
		closing, err := time.ParseInLocation(model.DateLayout, doc.ClosingDate, time.Local)
		if err != nil {
			return importer.Statement{}, fmt.Errorf("%w: closing date: %v", ErrInvalidFeed, err)
		}
		stmt.ClosingBalance = &balance
		stmt.ClosingDate = closing
	}

	currency := doc.Currency
	if currency == "" {
		currency = classify.LocalCurrency
	}

	for i, r := range doc.Rows {
		converted, err := r.convert(currency)
		if err != nil {
			return importer.Statement{}, fmt.Errorf("%w: row %d: %v", ErrInvalidFeed, i+1, err)
		}
		stmt.Rows = append(stmt.Rows, converted)
	}

	return stmt, nil
}

// convert turns r into a statement row settled in currency.
func (r row) convert(currency string) (importer.Row, error) {
	when, err := model.ParseMoment(r.Time)
	if err != nil {
		return importer.Row{}, err
	}
	trade, err := parseDecimal(r.TradeAmount)
	if err != nil {
		return importer.Row{}, fmt.Errorf("trade amount: %w", err)
	}

	settlement := trade
	if r.SettlementAmount != "" {
		if settlement, err = parseDecimal(r.SettlementAmount); err != nil {
			return importer.Row{}, fmt.Errorf("settlement amount: %w", err)
		}
	} else if r.TradeArea != "" {
		if traded := classify.NormalizeCurrency(r.TradeArea); traded != currency {
			return importer.Row{}, fmt.Errorf("trade area %s settles in %s but has no settlement amount", r.TradeArea, currency)
		}
	}

	return importer.Row{
		When:             when,
		Payee:            r.Payee,
		Description:      r.Description,
		TradeArea:        r.TradeArea,
		TradeAmount:      trade,
		SettlementAmount: settlement,
	}, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", "¥", "", "￥", "", " ", "").Replace(strings.TrimSpace(s))
	return decimal.NewFromString(cleaned)
}
