// Package testutil provides test helpers shared across the bean-flow packages.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/bean-flow/internal/model"
	"github.com/Veraticus/bean-flow/internal/storage"
)

// TestDB represents a migrated test database.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// Seed stores transactions as if an earlier run had imported them.
func (db *TestDB) Seed(txns ...*model.Transaction) *TestDB {
	db.t.Helper()
	if len(txns) == 0 {
		return db
	}
	if err := db.Storage.SaveTransactions(context.Background(), "", txns); err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
	return db
}

// MustLoad returns every stored transaction or fails the test.
func (db *TestDB) MustLoad() []*model.Transaction {
	db.t.Helper()
	txns, err := db.Storage.LoadTransactions(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load transactions: %v", err)
	}
	return txns
}
