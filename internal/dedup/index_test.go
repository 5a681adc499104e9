package dedup

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/bean-flow/internal/model"
)

const cardAccount = "Liabilities:CreditCard:Young"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cny(n string) model.Amount {
	return model.Amount{Number: decimal.RequireFromString(n), Currency: "CNY"}
}

func purchase(date time.Time, expense, n string) *model.Transaction {
	a := cny(n)
	txn := &model.Transaction{Date: date, Flag: model.FlagPending, Payee: "merchant"}
	txn.AddPosting(expense, &a, nil)
	txn.AddPosting(cardAccount, nil, nil)
	return txn
}

func TestIndex_NoMatchIsPendingUntilApply(t *testing.T) {
	idx := New(nil, DefaultConfig())
	txn := purchase(day(2024, 3, 1), "Expenses:Groceries", "45.60")

	assert.False(t, idx.FindDuplicate(txn, cny("-45.60"), nil, cardAccount))
	assert.Equal(t, 1, idx.Pending())
	assert.Equal(t, 0, idx.Known())

	// Not visible before Apply: an identical second purchase is kept.
	assert.False(t, idx.FindDuplicate(txn, cny("-45.60"), nil, cardAccount))
	assert.Equal(t, 2, idx.Pending())

	assert.Equal(t, 2, idx.Apply())
	assert.Equal(t, 0, idx.Pending())
	assert.Equal(t, 2, idx.Known())

	// Visible afterwards, once per applied entry.
	assert.True(t, idx.FindDuplicate(txn, cny("-45.60"), nil, cardAccount))
	assert.True(t, idx.FindDuplicate(txn, cny("-45.60"), nil, cardAccount))
	assert.False(t, idx.FindDuplicate(txn, cny("-45.60"), nil, cardAccount))
}

func TestIndex_ApplyIdempotent(t *testing.T) {
	idx := New(nil, DefaultConfig())
	assert.Equal(t, 0, idx.Apply())
	assert.Equal(t, 0, idx.Apply())

	idx.FindDuplicate(purchase(day(2024, 1, 1), "Expenses:X", "1"), cny("-1"), nil, cardAccount)
	assert.Equal(t, 1, idx.Apply())
	assert.Equal(t, 0, idx.Apply())
	assert.Equal(t, 1, idx.Known())
}

func TestIndex_EntryConsumedOnce(t *testing.T) {
	existing := []*model.Transaction{purchase(day(2024, 3, 10), "Expenses:Traffic:Train", "128.00")}
	idx := New(existing, DefaultConfig())

	candidate := purchase(day(2024, 3, 10), "Expenses:Traffic:Train", "128.00")
	assert.True(t, idx.FindDuplicate(candidate, cny("-128.00"), nil, cardAccount))
	assert.False(t, idx.FindDuplicate(candidate, cny("-128.00"), nil, cardAccount))
}

func TestIndex_SettlementDateSkewAcrossPasses(t *testing.T) {
	idx := New(nil, DefaultConfig())

	first := purchase(day(2024, 5, 20), "Expenses:Clothing", "128.00")
	require.False(t, idx.FindDuplicate(first, cny("-128.00"), nil, cardAccount))
	idx.Apply()

	second := purchase(day(2024, 5, 21), "Expenses:Clothing", "128.00")
	assert.True(t, idx.FindDuplicate(second, cny("-128.00"), nil, cardAccount))
}

func TestIndex_Matching(t *testing.T) {
	base := day(2024, 1, 31)

	tests := []struct {
		name    string
		date    time.Time
		amount  model.Amount
		account string
		want    bool
	}{
		{"same day", base, cny("-128.00"), cardAccount, true},
		{"sign ignored", base, cny("128.00"), cardAccount, true},
		{"one day later across month", day(2024, 2, 1), cny("-128.00"), cardAccount, true},
		{"two days later", day(2024, 2, 2), cny("-128.00"), cardAccount, true},
		{"two days earlier", day(2024, 1, 29), cny("-128.00"), cardAccount, true},
		{"three days later", day(2024, 2, 3), cny("-128.00"), cardAccount, false},
		{"rounding within tolerance", base, cny("-128.004"), cardAccount, true},
		{"one cent off", base, cny("-128.01"), cardAccount, false},
		{"other account", base, cny("-128.00"), "Assets:Bank:CMB", false},
		{"other currency", base, model.Amount{Number: decimal.RequireFromString("-128.00"), Currency: "USD"}, cardAccount, false},
		{"blank currency matches", base, model.Amount{Number: decimal.RequireFromString("-128.00")}, cardAccount, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := New([]*model.Transaction{purchase(base, "Expenses:Traffic:Train", "128.00")}, DefaultConfig())
			got := idx.FindDuplicate(purchase(tt.date, "Expenses:Traffic:Train", "128.00"), tt.amount, nil, tt.account)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndex_HintOverridesDate(t *testing.T) {
	idx := New([]*model.Transaction{purchase(day(2024, 6, 1), "Expenses:X", "10")}, DefaultConfig())

	hint := day(2024, 6, 2)
	candidate := purchase(day(2024, 7, 1), "Expenses:X", "10")
	assert.True(t, idx.FindDuplicate(candidate, cny("-10"), &hint, cardAccount))
}

func TestIndex_PrefersClosestDate(t *testing.T) {
	idx := New(nil, DefaultConfig())
	idx.Seed(
		model.Entry{Date: day(2024, 4, 8), Account: cardAccount, Amount: cny("-50"), Counterparty: "far"},
		model.Entry{Date: day(2024, 4, 11), Account: cardAccount, Amount: cny("-50"), Counterparty: "near"},
	)

	assert.True(t, idx.FindDuplicate(purchase(day(2024, 4, 10), "X", "50"), cny("-50"), nil, cardAccount))

	// The nearer entry was claimed, so the far one is still available.
	remaining := idx.byAccount[cardAccount]
	require.Len(t, remaining, 2)
	assert.False(t, remaining[0].consumed)
	assert.True(t, remaining[1].consumed)
}

func TestIndex_TieBrokenByInsertionOrder(t *testing.T) {
	idx := New(nil, DefaultConfig())
	idx.Seed(
		model.Entry{Date: day(2024, 4, 9), Account: cardAccount, Amount: cny("-50"), Counterparty: "first"},
		model.Entry{Date: day(2024, 4, 11), Account: cardAccount, Amount: cny("-50"), Counterparty: "second"},
	)

	assert.True(t, idx.FindDuplicate(purchase(day(2024, 4, 10), "X", "50"), cny("-50"), nil, cardAccount))

	entries := idx.byAccount[cardAccount]
	assert.True(t, entries[0].consumed, "earliest inserted entry wins a tie")
	assert.False(t, entries[1].consumed)

	assert.True(t, idx.FindDuplicate(purchase(day(2024, 4, 10), "X", "50"), cny("-50"), nil, cardAccount))
	assert.True(t, entries[1].consumed)
}

func TestIndex_SeedsFromPricedTransactions(t *testing.T) {
	units := model.Amount{Number: decimal.RequireFromString("15.99"), Currency: "USD"}
	price := model.Amount{Number: decimal.RequireFromString("115.23").Div(decimal.RequireFromString("15.99")), Currency: "CNY"}
	txn := &model.Transaction{Date: day(2024, 8, 1)}
	txn.AddPosting("Expenses:Subscriptions", &units, &price)
	txn.AddPosting(cardAccount, nil, nil)

	idx := New([]*model.Transaction{txn}, DefaultConfig())
	assert.True(t, idx.FindDuplicate(purchase(day(2024, 8, 2), "X", "115.23"), cny("-115.23"), nil, cardAccount))
}

func TestIndex_SkipsUnbalancedSeed(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	bad := &model.Transaction{Date: day(2024, 1, 1), Payee: "broken"}
	bad.AddPosting("A", nil, nil)
	bad.AddPosting("B", nil, nil)

	idx := New([]*model.Transaction{bad, purchase(day(2024, 1, 1), "Expenses:X", "3")}, DefaultConfig())
	assert.Equal(t, 2, idx.Known())
	assert.Contains(t, buf.String(), "Skipping unbalanced ledger transaction")
}

func TestIndex_ConfigNormalization(t *testing.T) {
	idx := New(nil, Config{Window: -3, Tolerance: decimal.New(-1, -2)})
	assert.Equal(t, 0, idx.cfg.Window)
	assert.True(t, idx.cfg.Tolerance.Equal(decimal.New(1, -2)))

	idx.Seed(model.Entry{Date: day(2024, 1, 1), Account: cardAccount, Amount: cny("-1")})
	assert.False(t, idx.FindDuplicate(purchase(day(2024, 1, 2), "X", "1"), cny("-1"), nil, cardAccount))
	assert.True(t, idx.FindDuplicate(purchase(day(2024, 1, 1), "X", "1"), cny("-1.01"), nil, cardAccount))
}

func TestIndex_PendingRecordsCounterparty(t *testing.T) {
	idx := New(nil, DefaultConfig())
	idx.FindDuplicate(purchase(day(2024, 1, 1), "Expenses:Groceries", "9"), cny("-9"), nil, cardAccount)
	require.Len(t, idx.pending, 1)
	assert.Equal(t, "Expenses:Groceries", idx.pending[0].Counterparty)
	assert.Equal(t, cardAccount, idx.pending[0].Account)
}
