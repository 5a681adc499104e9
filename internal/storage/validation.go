// Package storage persists imported ledger entries and the audit trail of
// import runs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/bean-flow/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidBalance     = errors.New("invalid balance")
	ErrInvalidImport      = errors.New("invalid import record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []*model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction checks a transaction has a date and balances.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if len(txn.Postings) == 0 {
		return fmt.Errorf("%w: no postings", ErrInvalidTransaction)
	}
	for i, p := range txn.Postings {
		if strings.TrimSpace(p.Account) == "" {
			return fmt.Errorf("%w: posting %d has no account", ErrInvalidTransaction, i)
		}
	}
	if _, err := txn.Complete(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	return nil
}

func validateBalance(b *model.Balance) error {
	if b == nil {
		return fmt.Errorf("%w: balance", ErrNilParameter)
	}
	if b.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidBalance)
	}
	if strings.TrimSpace(b.Account) == "" {
		return fmt.Errorf("%w: missing account", ErrInvalidBalance)
	}
	if b.Amount.Currency == "" {
		return fmt.Errorf("%w: missing currency", ErrInvalidBalance)
	}
	return nil
}

func validateImport(rec *ImportRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: import record", ErrNilParameter)
	}
	if strings.TrimSpace(rec.Source) == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidImport)
	}
	if strings.TrimSpace(rec.Account) == "" {
		return fmt.Errorf("%w: missing account", ErrInvalidImport)
	}
	if rec.Accepted < 0 || rec.Duplicates < 0 {
		return fmt.Errorf("%w: negative counts", ErrInvalidImport)
	}
	return nil
}
