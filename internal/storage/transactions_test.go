package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/bean-flow/internal/classify"
	"github.com/Veraticus/bean-flow/internal/dedup"
	"github.com/Veraticus/bean-flow/internal/importer"
	"github.com/Veraticus/bean-flow/internal/model"
)

func TestSQLiteStorage_SaveAndLoadTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	foreign := &model.Transaction{
		Date:  time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		Flag:  model.FlagPending,
		Payee: "iCloud",
		Tags:  []string{"alipay"},
	}
	foreign.AddPosting("Expenses:Subscription", amount("2.99", "USD"), amount("7.197324414715719", "CNY"))
	foreign.AddPosting("Liabilities:CreditCard:Young", nil, nil)

	txns := append(createTestTransactions(2), foreign)
	require.NoError(t, store.SaveTransactions(ctx, "", txns))

	loaded, err := store.LoadTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	for i := range txns {
		assert.Equal(t, txns[i].String(), loaded[i].String(), "transaction %d round-trips", i)
	}

	got := loaded[2]
	assert.Equal(t, []string{"alipay"}, got.Tags)
	assert.Nil(t, loaded[0].Tags)
	require.Len(t, got.Postings, 2)
	require.NotNil(t, got.Postings[0].Price)
	assert.True(t, got.Postings[0].Price.Number.Equal(foreign.Postings[0].Price.Number))
	assert.Nil(t, got.Postings[1].Units)
}

func TestSQLiteStorage_SaveTransactionsValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	unbalanced := &model.Transaction{Date: time.Now(), Flag: model.FlagPending}
	unbalanced.AddPosting("Expenses:Food", amount("1", "CNY"), nil)
	unbalanced.AddPosting("Assets:Cash", amount("2", "CNY"), nil)

	noAccount := &model.Transaction{Date: time.Now(), Flag: model.FlagPending}
	noAccount.AddPosting("", amount("1", "CNY"), nil)
	noAccount.AddPosting("Assets:Cash", nil, nil)

	tests := []struct {
		name    string
		txns    []*model.Transaction
		wantErr error
	}{
		{name: "nil slice", txns: nil, wantErr: ErrNilParameter},
		{name: "empty slice", txns: []*model.Transaction{}, wantErr: ErrEmptySlice},
		{name: "nil transaction", txns: []*model.Transaction{nil}, wantErr: ErrNilParameter},
		{name: "missing date", txns: []*model.Transaction{{Flag: "!"}}, wantErr: ErrInvalidTransaction},
		{name: "no postings", txns: []*model.Transaction{{Date: time.Now()}}, wantErr: ErrInvalidTransaction},
		{name: "unbalanced", txns: []*model.Transaction{unbalanced}, wantErr: model.ErrUnbalanced},
		{name: "posting without account", txns: []*model.Transaction{noAccount}, wantErr: ErrInvalidTransaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.SaveTransactions(ctx, "", tt.txns)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	count, err := store.TransactionCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "rejected batches store nothing")
}

func TestSQLiteStorage_Balances(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	feb := &model.Balance{Date: time.Date(2024, 2, 18, 0, 0, 0, 0, time.UTC), Account: "Liabilities:CreditCard:Young", Amount: *amount("-99.5", "CNY")}
	jan := &model.Balance{Date: time.Date(2024, 1, 18, 0, 0, 0, 0, time.UTC), Account: "Liabilities:CreditCard:Young", Amount: *amount("-10", "CNY")}
	other := &model.Balance{Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Account: "Assets:Bank:Chase", Amount: *amount("1000", "USD")}

	for _, b := range []*model.Balance{feb, jan, other} {
		require.NoError(t, store.SaveBalance(ctx, "", b))
	}

	young, err := store.Balances(ctx, "Liabilities:CreditCard:Young")
	require.NoError(t, err)
	require.Len(t, young, 2)
	assert.Equal(t, jan.String(), young[0].String(), "ordered by date")
	assert.Equal(t, feb.String(), young[1].String())

	all, err := store.Balances(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.ErrorIs(t, store.SaveBalance(ctx, "", nil), ErrNilParameter)
	assert.ErrorIs(t, store.SaveBalance(ctx, "", &model.Balance{Account: "x"}), ErrInvalidBalance)
}

func TestSQLiteStorage_RecordImport(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	older := &ImportRecord{Source: "jan.eml", Account: "Liabilities:CreditCard:Young", Accepted: 3, ImportedAt: time.Now().Add(-time.Hour)}
	newer := &ImportRecord{Source: "feb.eml", Account: "Liabilities:CreditCard:Young", Accepted: 1, Duplicates: 2}

	require.NoError(t, store.RecordImport(ctx, older))
	require.NoError(t, store.RecordImport(ctx, newer))
	assert.NotEmpty(t, newer.ID)
	assert.NotEqual(t, older.ID, newer.ID)
	assert.False(t, newer.ImportedAt.IsZero())

	records, err := store.Imports(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "feb.eml", records[0].Source, "newest first")
	assert.Equal(t, 2, records[0].Duplicates)
	assert.Equal(t, older.ID, records[1].ID)

	assert.ErrorIs(t, store.RecordImport(ctx, &ImportRecord{Account: "x"}), ErrInvalidImport)
	assert.ErrorIs(t, store.RecordImport(ctx, &ImportRecord{Source: "x", Account: "y", Accepted: -1}), ErrInvalidImport)
}

// TestSQLiteStorage_SaveResultSeedsNextRun checks that stored transactions
// suppress the same statement when it is imported again.
func TestSQLiteStorage_SaveResultSeedsNextRun(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	c, err := classify.New(classify.DefaultTables())
	require.NoError(t, err)

	balance := decimal.RequireFromString("-151.10")
	row := func(day int, payee, desc, amt string) importer.Row {
		return importer.Row{
			When:             model.OnDate(time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)),
			Payee:            payee,
			Description:      desc,
			TradeAmount:      decimal.RequireFromString(amt),
			SettlementAmount: decimal.RequireFromString(amt),
		}
	}
	stmt := importer.Statement{
		Source:         "2024-03.eml",
		Account:        "Liabilities:CreditCard:Young",
		ClosingDate:    time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC),
		ClosingBalance: &balance,
		Rows: []importer.Row{
			row(1, "铁道部", "12306", "128.00"),
			row(4, "滴滴出行", "滴滴快车", "23.10"),
		},
	}

	first, err := importer.New(c, dedup.New(nil, dedup.DefaultConfig())).Import(ctx, stmt)
	require.NoError(t, err)
	require.Len(t, first.Transactions, 2)

	rec, err := store.SaveResult(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Accepted)

	existing, err := store.LoadTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, existing, 2)

	second, err := importer.New(c, dedup.New(existing, dedup.DefaultConfig())).Import(ctx, stmt)
	require.NoError(t, err)
	assert.Empty(t, second.Transactions)
	assert.Equal(t, 2, second.Duplicates)

	rec2, err := store.SaveResult(ctx, second)
	require.NoError(t, err)
	assert.Zero(t, rec2.Accepted)

	balances, err := store.Balances(ctx, stmt.Account)
	require.NoError(t, err)
	assert.Len(t, balances, 2, "every run asserts the closing balance")

	count, err := store.TransactionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = store.SaveResult(ctx, nil)
	assert.ErrorIs(t, err, ErrNilParameter)
}
