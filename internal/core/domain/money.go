package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places carried by Money.
const MoneyScale = 2

var (
	ErrAmountFormat    = errors.New("amount is not a valid decimal number")
	ErrAmountPrecision = errors.New("amount must have at most 2 decimal places")
	ErrAmountRange     = errors.New("amount is out of range")
)

// Money is a fixed-point amount counted in minor units (cents).
// Binary floating point never touches a balance.
type Money int64

// ParseMoney parses a decimal string such as "100", "100.5" or "100.50".
// Values with more than two decimal places are rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrAmountFormat, s)
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal converts an exact decimal into Money.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Truncate(MoneyScale)) {
		return 0, ErrAmountPrecision
	}
	minor := d.Shift(MoneyScale)
	if !minor.IsInteger() || minor.Abs().GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, ErrAmountRange
	}
	return Money(minor.IntPart()), nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -MoneyScale)
}

// String renders the amount with exactly two decimal places, e.g. "-50.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(MoneyScale)
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool { return m > 0 }

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.34" and 12.34.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
