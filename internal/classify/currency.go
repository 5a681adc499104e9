package classify

import (
	"log/slog"
	"strings"
)

// LocalCurrency is assumed when a statement leaves the trade area blank.
const LocalCurrency = "CNY"

// TradeAreas maps statement trade-area codes to ISO 4217 currencies.
var TradeAreas = map[string]string{
	"CN": "CNY",
	"US": "USD",
	"JP": "JPY",
	"HK": "HKD",
	"SG": "SGD",
}

// NormalizeCurrency maps a trade-area code to its currency. Blank codes
// mean the local currency; unknown codes are logged and returned as given.
func NormalizeCurrency(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return LocalCurrency
	}
	if iso, ok := TradeAreas[code]; ok {
		return iso
	}
	slog.Warn("Unknown trade area, passing through unchanged", "code", code)
	return code
}
