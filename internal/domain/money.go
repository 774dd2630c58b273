package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency enumerates the currencies a donation or an item may be priced in.
type Currency string

const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// DefaultCurrency is used when neither the request nor the target item names one.
const DefaultCurrency = CurrencyRUB

var supportedCurrencies = map[currency.Unit]Currency{
	currency.RUB: CurrencyRUB,
	currency.USD: CurrencyUSD,
	currency.EUR: CurrencyEUR,
}

// ParseCurrency parses an ISO 4217 code and rejects anything outside the
// supported set.
func ParseCurrency(s string) (Currency, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("currency %q: %w", s, ErrValidation)
	}
	c, ok := supportedCurrencies[unit]
	if !ok {
		return "", fmt.Errorf("currency %q not supported: %w", s, ErrValidation)
	}
	return c, nil
}

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyRUB, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// ParseAmount parses a decimal amount as stored in the database.
func ParseAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// Percent returns round(100 * part / whole) and 0 when whole is not positive.
func Percent(part, whole decimal.Decimal) int64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Mul(decimal.NewFromInt(100)).Div(whole).Round(0).IntPart()
}
