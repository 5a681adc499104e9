package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bean-flow/internal/model"
)

// SaveBalance stores a balance assertion.
func (s *SQLiteStorage) SaveBalance(ctx context.Context, importID string, b *model.Balance) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBalance(b); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return saveBalanceTx(ctx, tx, importID, b)
	})
}

func saveBalanceTx(ctx context.Context, tx *sql.Tx, importID string, b *model.Balance) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (import_id, date, account, number, currency)
		VALUES (?, ?, ?, ?, ?)
	`, nullString(importID), b.Date.Format(dateLayout), b.Account, b.Amount.Number.String(), b.Amount.Currency)
	if err != nil {
		return fmt.Errorf("failed to insert balance for %s: %w", b.Account, err)
	}
	return nil
}

// Balances returns the balance assertions for account ordered by date, or
// for every account when account is empty.
func (s *SQLiteStorage) Balances(ctx context.Context, account string) ([]model.Balance, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT date, account, number, currency FROM balances`
	var args []any
	if account != "" {
		query += ` WHERE account = ?`
		args = append(args, account)
	}
	query += ` ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", "error", closeErr)
		}
	}()

	var balances []model.Balance
	for rows.Next() {
		var date, acct, number, currency string
		if err := rows.Scan(&date, &acct, &number, &currency); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		day, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("balance for %s has invalid date %q: %w", acct, date, err)
		}
		n, err := decimal.NewFromString(number)
		if err != nil {
			return nil, fmt.Errorf("balance for %s has invalid number %q: %w", acct, number, err)
		}
		balances = append(balances, model.Balance{
			Date:    day,
			Account: acct,
			Amount:  model.Amount{Number: n, Currency: currency},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}
	return balances, nil
}
