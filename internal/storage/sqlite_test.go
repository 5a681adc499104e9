package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bean-flow/internal/model"
)

func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func amount(number, currency string) *model.Amount {
	return &model.Amount{Number: decimal.RequireFromString(number), Currency: currency}
}

// createTestTransactions builds count balanced card transactions on consecutive days.
func createTestTransactions(count int) []*model.Transaction {
	txns := make([]*model.Transaction, count)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		txn := &model.Transaction{
			Date:      base.AddDate(0, 0, i),
			Flag:      model.FlagPending,
			Payee:     "滴滴出行",
			Narration: "滴滴快车",
		}
		txn.AddPosting("Expenses:Traffic:Taxi", amount(decimal.NewFromInt(int64(i+1)*10).String(), "CNY"), nil)
		txn.AddPosting("Liabilities:CreditCard:Young", nil, nil)
		txns[i] = txn
	}
	return txns
}

func TestNewSQLiteStorage_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	if store.Path() != ":memory:" {
		t.Errorf("Path() = %q, want :memory:", store.Path())
	}

	count, err := store.TransactionCount(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty store, got %d transactions", count)
	}
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStorage("  "); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestSQLiteStorage_Migrations(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "ledger.db")

	store1, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err2 := store1.Migrate(ctx); err2 != nil {
		t.Fatalf("Initial migration failed: %v", err2)
	}
	_ = store1.Close()

	// Running migrations again should not error
	store2, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = store2.Close() }()

	if err := store2.Migrate(ctx); err != nil {
		t.Fatalf("Repeated migration failed: %v", err)
	}

	version, err := store2.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("Failed to read version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("SchemaVersion() = %d, want %d", version, ExpectedSchemaVersion)
	}

	var indexCount int
	err = store2.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name='idx_postings_account'
	`).Scan(&indexCount)
	if err != nil {
		t.Fatalf("Failed to check index: %v", err)
	}
	if indexCount != 1 {
		t.Error("Posting account index was not created")
	}

	if err := store2.SaveTransactions(ctx, "", createTestTransactions(1)); err != nil {
		t.Errorf("Database not functional after migration: %v", err)
	}
}

func TestSQLiteStorage_NilContext(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	//nolint:staticcheck // nil context is the point of the test
	if _, err := store.LoadTransactions(nil); err != ErrNilContext {
		t.Errorf("LoadTransactions(nil) error = %v, want %v", err, ErrNilContext)
	}
}

func TestSQLiteStorage_ConcurrentAccess(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	done := make(chan bool)
	errors := make(chan error, 10)

	for i := 0; i < 5; i++ {
		go func() {
			if err := store.SaveTransactions(ctx, "", createTestTransactions(1)); err != nil {
				errors <- err
			}
			done <- true
		}()
	}

	for i := 0; i < 5; i++ {
		go func() {
			if _, err := store.LoadTransactions(ctx); err != nil {
				errors <- err
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	close(errors)
	for err := range errors {
		t.Errorf("Concurrent access error: %v", err)
	}

	count, err := store.TransactionCount(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 transactions, got %d", count)
	}
}
