package classify

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Veraticus/bean-flow/internal/model"
	"github.com/Veraticus/bean-flow/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiningByHour_Bands(t *testing.T) {
	want := map[int]string{}
	for h := 0; h < 24; h++ {
		switch {
		case h <= 3 || h >= 21:
			want[h] = AccountLateNight
		case h >= 4 && h <= 10:
			want[h] = AccountBreakfast
		case h >= 11 && h <= 16:
			want[h] = AccountLunch
		case h >= 17 && h <= 20:
			want[h] = AccountSupper
		}
	}

	counts := map[string]int{}
	for h := 0; h < 24; h++ {
		got := DiningByHour("", "", at(h))
		require.Contains(t, []string{AccountLateNight, AccountBreakfast, AccountLunch, AccountSupper}, got, "hour %d", h)
		assert.Equal(t, want[h], got, "hour %d", h)
		counts[got]++
	}

	assert.Equal(t, 7, counts[AccountLateNight])
	assert.Equal(t, 7, counts[AccountBreakfast])
	assert.Equal(t, 6, counts[AccountLunch])
	assert.Equal(t, 4, counts[AccountSupper])
}

func TestDiningByHour_Boundaries(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{3, AccountLateNight},
		{4, AccountBreakfast},
		{10, AccountBreakfast},
		{11, AccountLunch},
		{16, AccountLunch},
		{17, AccountSupper},
		{20, AccountSupper},
		{21, AccountLateNight},
		{0, AccountLateNight},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DiningByHour("", "", at(tt.hour)), "hour %d", tt.hour)
	}
}

func TestDiningByHour_NoClock(t *testing.T) {
	assert.Equal(t, AccountDiet, DiningByHour("payee", "desc", nil))
	assert.Equal(t, AccountDiet, DiningByHour("", "", model.OnDate(time.Now())))
	assert.Equal(t, AccountDiet, DiningByHour("", "", &model.Moment{Time: time.Date(2024, 1, 1, 19, 0, 0, 0, time.UTC)}))
}

func TestCreditCardRepayment(t *testing.T) {
	cards := map[string]string{"招商银行": "Liabilities:CreditCard:Young"}
	r := CreditCardRepayment(cards)

	assert.Equal(t, "Liabilities:CreditCard:Young", r.Resolve("招商银行", "信用卡还款", nil))
	assert.Equal(t, "Unknown", r.Resolve("招商", "信用卡还款", nil))
	assert.Equal(t, "Unknown", r.Resolve("", "", nil))

	// Later edits to the source map do not leak into the resolver.
	cards["招商"] = "Liabilities:X"
	assert.Equal(t, "Unknown", r.Resolve("招商", "", nil))
}

func TestResolvers(t *testing.T) {
	reg := Resolvers()
	assert.Equal(t, []string{ResolverCreditCard, ResolverDining}, reg.Names())

	dining, err := reg.Lookup(ResolverDining)
	require.NoError(t, err)
	assert.Equal(t, AccountLunch, dining.Resolve("", "", at(12)))
	assert.Equal(t, "dining()", rules.Describe(dining))
}

func TestNormalizeCurrency(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	assert.Equal(t, "CNY", NormalizeCurrency(""))
	assert.Equal(t, "CNY", NormalizeCurrency("  "))
	assert.Equal(t, "USD", NormalizeCurrency("US"))
	assert.Equal(t, "JPY", NormalizeCurrency("JP"))
	assert.Equal(t, "HKD", NormalizeCurrency("HK"))
	assert.Equal(t, "SGD", NormalizeCurrency("SG"))
	assert.Empty(t, buf.String())

	assert.Equal(t, "KR", NormalizeCurrency("KR"))
	assert.Contains(t, buf.String(), "Unknown trade area")
	assert.Contains(t, buf.String(), "KR")
}
