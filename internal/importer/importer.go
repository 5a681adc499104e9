package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/bean-flow/internal/classify"
	"github.com/Veraticus/bean-flow/internal/model"
)

// Classifier picks the destination account of a row.
type Classifier interface {
	Classify(in classify.Input) string
	ClassifyIncome(in classify.Input) (string, bool)
}

// Deduplicator suppresses rows that the ledger already holds.
type Deduplicator interface {
	FindDuplicate(txn *model.Transaction, amount model.Amount, hint *time.Time, account string) bool
	Apply() int
}

// Aggregators maps payment-aggregator payees to the tag their
// transactions receive. The real merchant is in the description.
var Aggregators = map[string]string{
	"支付宝": "alipay",
	"财付通": "wechat",
	"美团":  "meituan",
}

// Importer converts statements into pending ledger transactions.
type Importer struct {
	classifier Classifier
	index      Deduplicator
}

// New creates an importer. Statements imported by one importer share the
// duplicate index, so overlapping statements are suppressed.
func New(classifier Classifier, index Deduplicator) *Importer {
	return &Importer{classifier: classifier, index: index}
}

// Import converts stmt row by row in document order. Accepted transactions
// become matchable for later statements once the statement completes.
//
// Every row is converted before the duplicate index is consulted, so a
// statement that fails leaves the index untouched.
func (im *Importer) Import(ctx context.Context, stmt Statement) (*Result, error) {
	if stmt.Account == "" {
		return nil, fmt.Errorf("%w: statement %q has no account", ErrMalformedRow, stmt.Source)
	}
	settlement := stmt.Currency
	if settlement == "" {
		settlement = classify.LocalCurrency
	}

	drafts := make([]*model.Transaction, len(stmt.Rows))
	for i, row := range stmt.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		txn, err := im.convert(row, stmt.Account, settlement)
		if err != nil {
			return nil, fmt.Errorf("row %d of %s: %w", i+1, stmt.Source, err)
		}
		drafts[i] = txn
	}

	res := &Result{Source: stmt.Source, Account: stmt.Account}

	for i, txn := range drafts {
		owed := model.Amount{Number: stmt.Rows[i].SettlementAmount.Neg(), Currency: settlement}
		if im.index.FindDuplicate(txn, owed, nil, stmt.Account) {
			res.Duplicates++
			continue
		}
		res.Transactions = append(res.Transactions, txn)
	}

	im.index.Apply()

	if stmt.ClosingBalance != nil {
		res.Balance = &model.Balance{
			Date:    stmt.ClosingDate,
			Account: stmt.Account,
			Amount:  model.Amount{Number: *stmt.ClosingBalance, Currency: settlement},
		}
	}

	slog.Info("Imported statement",
		"source", stmt.Source,
		"account", stmt.Account,
		"rows", len(stmt.Rows),
		"accepted", len(res.Transactions),
		"duplicates", res.Duplicates)

	return res, nil
}

func (im *Importer) convert(row Row, origin, settlement string) (*model.Transaction, error) {
	if row.When == nil {
		return nil, fmt.Errorf("%w: missing date", ErrMalformedRow)
	}

	// A blank trade area means the row settled in the statement currency.
	trade := settlement
	if row.TradeArea != "" {
		trade = classify.NormalizeCurrency(row.TradeArea)
	}

	in := classify.Input{Payee: row.Payee, Description: row.Description, When: row.When}
	account, ok := "", false
	if row.SettlementAmount.IsNegative() {
		account, ok = im.classifier.ClassifyIncome(in)
	}
	if !ok {
		account = im.classifier.Classify(in)
	}

	slog.Debug("Importing transaction",
		"description", row.Description,
		"date", row.Date().Format("2006-01-02"),
		"account", account)

	payee, narration := row.Payee, row.Description
	var tags []string
	if tag, ok := Aggregators[payee]; ok {
		tags = []string{tag}
		payee, narration = narration, ""
	}

	txn := &model.Transaction{
		Date:      row.Date(),
		Flag:      model.FlagPending,
		Payee:     payee,
		Narration: narration,
		Tags:      tags,
	}

	units := model.Amount{Number: row.TradeAmount, Currency: trade}
	if trade == settlement {
		txn.AddPosting(account, &units, nil)
	} else {
		tradeAbs := row.TradeAmount.Round(2).Abs()
		if tradeAbs.IsZero() {
			return nil, fmt.Errorf("%w: zero trade amount in %s", ErrMalformedRow, trade)
		}
		price := model.Amount{
			Number:   row.SettlementAmount.Round(2).Abs().Div(tradeAbs),
			Currency: settlement,
		}
		txn.AddPosting(account, &units, &price)
	}
	txn.AddPosting(origin, nil, nil)

	return txn, nil
}
