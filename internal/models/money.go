package models

import (
	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. It scans from and binds to NUMERIC
// columns through decimal.Decimal and renders with two fraction digits.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func MustMoney(s string) Money {
	return Money{Decimal: decimal.RequireFromString(s)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}
