package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney keeps consistent two-decimal formatting for currency fields.
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// ParseMoney parses a currency amount, tolerating thousand separators.
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(s)
}
