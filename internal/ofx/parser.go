// Package ofx reads OFX/QFX statements into importable statements.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/bean-flow/internal/importer"
	"github.com/Veraticus/bean-flow/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser implements OFX/QFX file parsing.
type Parser struct {
	accounts map[string]string
}

// NewParser creates a new OFX parser. accounts maps OFX account IDs to
// ledger accounts; unmapped IDs become Assets:Unknown:<id>.
func NewParser(accounts map[string]string) *Parser {
	return &Parser{accounts: accounts}
}

// LedgerAccount returns the ledger account for an OFX account ID.
func (p *Parser) LedgerAccount(acctID string) string {
	if account, ok := p.accounts[acctID]; ok && account != "" {
		return account
	}
	return "Assets:Unknown:" + acctID
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	// Trim any leading whitespace or blank lines before the header
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix missing closing angle brackets in SGML-style OFX files
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseStatements parses an OFX/QFX file into one statement per account.
func (p *Parser) ParseStatements(ctx context.Context, source string, reader io.Reader) ([]importer.Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var statements []importer.Statement

	// Process bank messages
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		acctID := string(stmt.BankAcctFrom.AcctID)
		s, err := p.convertStatement(source, acctID, stmt.CurDef, stmt.BankTranList, stmt.BalAmt, stmt.DtAsOf)
		if err != nil {
			return nil, fmt.Errorf("bank account %s: %w", acctID, err)
		}
		statements = append(statements, s)
	}

	// Process credit card messages
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		acctID := string(stmt.CCAcctFrom.AcctID)
		s, err := p.convertStatement(source, acctID, stmt.CurDef, stmt.BankTranList, stmt.BalAmt, stmt.DtAsOf)
		if err != nil {
			return nil, fmt.Errorf("credit card account %s: %w", acctID, err)
		}
		statements = append(statements, s)
	}

	slog.Info("Parsed OFX file",
		"source", source,
		"statements", len(statements))

	return statements, nil
}

func (p *Parser) convertStatement(
	source, acctID string,
	curDef ofxgo.CurrSymbol,
	list *ofxgo.TransactionList,
	balAmt ofxgo.Amount,
	asOf ofxgo.Date,
) (importer.Statement, error) {
	stmt := importer.Statement{
		Source:   source,
		Account:  p.LedgerAccount(acctID),
		Currency: currencyCode(curDef),
	}

	if !asOf.IsZero() {
		balance, err := ratToDecimal(balAmt)
		if err != nil {
			return stmt, err
		}
		stmt.ClosingBalance = &balance
		stmt.ClosingDate = model.Day(asOf.Time)
	}

	if list == nil {
		return stmt, nil
	}

	for _, ofxTx := range list.Transactions {
		row, err := p.convertTransaction(ofxTx)
		if err != nil {
			return stmt, fmt.Errorf("transaction %s: %w", ofxTx.FiTID, err)
		}
		stmt.Rows = append(stmt.Rows, row)
	}
	return stmt, nil
}

// convertTransaction converts an OFX transaction to a statement row.
// OFX amounts are signed from the account's view, so they are negated to
// give the amount posted to the classified account.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction) (importer.Row, error) {
	amount, err := ratToDecimal(ofxTx.TrnAmt)
	if err != nil {
		return importer.Row{}, err
	}
	amount = amount.Neg()

	description := strings.TrimSpace(string(ofxTx.Memo))
	if description == "" {
		description = strings.TrimSpace(string(ofxTx.Name))
	}

	return importer.Row{
		When:             model.OnDate(ofxTx.DtPosted.Time),
		Payee:            p.extractMerchantName(ofxTx),
		Description:      description,
		TradeAmount:      amount,
		SettlementAmount: amount,
	}, nil
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	// Prefer PAYEE if available (cleaner merchant name)
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := strings.TrimSpace(string(tx.Name))

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Clean up date patterns like "MM/DD" at the beginning
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func currencyCode(cur ofxgo.CurrSymbol) string {
	if ok, _ := cur.Valid(); !ok {
		return ""
	}
	return cur.String()
}

func ratToDecimal(a ofxgo.Amount) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(a.FloatString(8))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %s: %w", a.String(), err)
	}
	return d, nil
}
