package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/bean-flow/internal/model"
)

const dateLayout = "2006-01-02"

// SaveTransactions appends transactions to the ledger. importID links them to
// an import run and may be empty for hand-entered transactions.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, importID string, transactions []*model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return saveTransactionsTx(ctx, tx, importID, transactions)
	})
}

func saveTransactionsTx(ctx context.Context, tx *sql.Tx, importID string, transactions []*model.Transaction) error {
	txnStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (import_id, date, flag, payee, narration, tags)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = txnStmt.Close() }()

	postingStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO postings (
			transaction_id, position, account,
			units_number, units_currency, price_number, price_currency
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = postingStmt.Close() }()

	for _, txn := range transactions {
		var tags sql.NullString
		if len(txn.Tags) > 0 {
			b, marshalErr := json.Marshal(txn.Tags)
			if marshalErr != nil {
				return fmt.Errorf("failed to encode tags: %w", marshalErr)
			}
			tags = sql.NullString{String: string(b), Valid: true}
		}

		res, execErr := txnStmt.ExecContext(ctx,
			nullString(importID),
			txn.Date.Format(dateLayout),
			txn.Flag,
			txn.Payee,
			txn.Narration,
			tags,
		)
		if execErr != nil {
			return fmt.Errorf("failed to insert transaction %s %q: %w", txn.Date.Format(dateLayout), txn.Payee, execErr)
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return fmt.Errorf("failed to get transaction id: %w", idErr)
		}

		for pos, p := range txn.Postings {
			unitsNumber, unitsCurrency := amountColumns(p.Units)
			priceNumber, priceCurrency := amountColumns(p.Price)
			if _, execErr := postingStmt.ExecContext(ctx,
				id, pos, p.Account,
				unitsNumber, unitsCurrency, priceNumber, priceCurrency,
			); execErr != nil {
				return fmt.Errorf("failed to insert posting %d of transaction %d: %w", pos, id, execErr)
			}
		}
	}

	return nil
}

// LoadTransactions returns every stored transaction in insertion order.
func (s *SQLiteStorage) LoadTransactions(ctx context.Context) ([]*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.date, t.flag, t.payee, t.narration, t.tags,
			p.account, p.units_number, p.units_currency, p.price_number, p.price_currency
		FROM transactions t
		JOIN postings p ON p.transaction_id = t.id
		ORDER BY t.id, p.position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", "error", closeErr)
		}
	}()

	var (
		transactions []*model.Transaction
		current      *model.Transaction
		currentID    int64 = -1
	)

	for rows.Next() {
		var (
			id                           int64
			date, flag, payee, narration string
			tags                         sql.NullString
			account                      string
			unitsNumber, unitsCurrency   sql.NullString
			priceNumber, priceCurrency   sql.NullString
		)
		if err := rows.Scan(&id, &date, &flag, &payee, &narration, &tags,
			&account, &unitsNumber, &unitsCurrency, &priceNumber, &priceCurrency); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if id != currentID {
			day, parseErr := time.Parse(dateLayout, date)
			if parseErr != nil {
				return nil, fmt.Errorf("transaction %d has invalid date %q: %w", id, date, parseErr)
			}
			current = &model.Transaction{Date: day, Flag: flag, Payee: payee, Narration: narration}
			if tags.Valid && tags.String != "" {
				if err := json.Unmarshal([]byte(tags.String), &current.Tags); err != nil {
					return nil, fmt.Errorf("transaction %d has invalid tags: %w", id, err)
				}
			}
			transactions = append(transactions, current)
			currentID = id
		}

		units, err := scanAmount(unitsNumber, unitsCurrency)
		if err != nil {
			return nil, fmt.Errorf("transaction %d units: %w", id, err)
		}
		price, err := scanAmount(priceNumber, priceCurrency)
		if err != nil {
			return nil, fmt.Errorf("transaction %d price: %w", id, err)
		}
		current.AddPosting(account, units, price)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// TransactionCount returns the number of stored transactions.
func (s *SQLiteStorage) TransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func amountColumns(a *model.Amount) (sql.NullString, sql.NullString) {
	if a == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: a.Number.String(), Valid: true},
		sql.NullString{String: a.Currency, Valid: true}
}

func scanAmount(number, currency sql.NullString) (*model.Amount, error) {
	if !number.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(number.String)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", number.String, err)
	}
	return &model.Amount{Number: d, Currency: currency.String}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
