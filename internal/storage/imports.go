package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/bean-flow/internal/importer"
)

// ImportRecord is the audit entry for one imported statement.
type ImportRecord struct {
	ImportedAt time.Time
	ID         string
	Source     string
	Account    string
	Accepted   int
	Duplicates int
}

// RecordImport stores rec, filling in its ID and timestamp when unset.
func (s *SQLiteStorage) RecordImport(ctx context.Context, rec *ImportRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateImport(rec); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return recordImportTx(ctx, tx, rec)
	})
}

func recordImportTx(ctx context.Context, tx *sql.Tx, rec *ImportRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ImportedAt.IsZero() {
		rec.ImportedAt = time.Now()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO imports (id, source, account, accepted, duplicates, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Source, rec.Account, rec.Accepted, rec.Duplicates, rec.ImportedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record import %s: %w", rec.Source, err)
	}
	return nil
}

// Imports lists import runs, newest first.
func (s *SQLiteStorage) Imports(ctx context.Context) ([]ImportRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, account, accepted, duplicates, imported_at
		FROM imports
		ORDER BY imported_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query imports: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", "error", closeErr)
		}
	}()

	var records []ImportRecord
	for rows.Next() {
		var rec ImportRecord
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Account, &rec.Accepted, &rec.Duplicates, &rec.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating imports: %w", err)
	}
	return records, nil
}

// SaveResult atomically stores an import result: the run record, its
// accepted transactions and its balance assertion.
func (s *SQLiteStorage) SaveResult(ctx context.Context, res *importer.Result) (*ImportRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: result", ErrNilParameter)
	}

	rec := &ImportRecord{
		Source:     res.Source,
		Account:    res.Account,
		Accepted:   len(res.Transactions),
		Duplicates: res.Duplicates,
	}
	if err := validateImport(rec); err != nil {
		return nil, err
	}
	if len(res.Transactions) > 0 {
		if err := validateTransactions(res.Transactions); err != nil {
			return nil, err
		}
	}
	if res.Balance != nil {
		if err := validateBalance(res.Balance); err != nil {
			return nil, err
		}
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := recordImportTx(ctx, tx, rec); err != nil {
			return err
		}
		if len(res.Transactions) > 0 {
			if err := saveTransactionsTx(ctx, tx, rec.ID, res.Transactions); err != nil {
				return err
			}
		}
		if res.Balance != nil {
			return saveBalanceTx(ctx, tx, rec.ID, res.Balance)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("Saved import",
		"id", rec.ID,
		"source", rec.Source,
		"accepted", rec.Accepted)

	return rec, nil
}
