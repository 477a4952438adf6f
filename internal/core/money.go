// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and decimal representations.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Money is an amount in cents of the account currency.
type Money struct {
	Cents int64
}

// Cents builds a Money value.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// ParseDecimalToCents converts a decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// rejected, as are empty and malformed strings. Zero is allowed; callers
// decide whether zero is meaningful for their field.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Reject exponents and anything beyond what fits in int64 cents.
	if strings.ContainsAny(s, "eE") || d.GreaterThan(decimal.New(1, 16)) {
		return 0, ErrInvalidAmount
	}
	return d.Round(2).Shift(2).IntPart(), nil
}

// ParseMoney parses a non-negative decimal amount.
func ParseMoney(s string) (Money, error) {
	c, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: c}, nil
}

// Decimal returns the amount as a decimal in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimals and a dot separator.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// BRL formats the amount for display, e.g. "R$ 1.234,56".
func (m Money) BRL() string {
	prefix := "R$ "
	c := m.Cents
	if c < 0 {
		prefix = "-R$ "
		c = -c
	}
	return prefix + humanize.FormatFloat("#.###,##", float64(c)/100.0)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }
func (m Money) IsNegative() bool  { return m.Cents < 0 }

// ValidatePositive checks the amount is strictly greater than zero.
func (m Money) ValidatePositive() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateNonNegative checks the amount is zero or more.
func (m Money) ValidateNonNegative() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Percent returns part*100/whole rounded to two decimals. A zero whole yields 0.
func Percent(part, whole Money) float64 {
	if whole.Cents == 0 {
		return 0
	}
	p := decimal.NewFromInt(part.Cents).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(whole.Cents), 2)
	return p.InexactFloat64()
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts "12.34", "-12.34" or 12.34.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		m.Cents = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode amount: %w", err)
		}
	}
	raw = strings.TrimSpace(raw)
	neg := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")
	c, err := ParseDecimalToCents(raw)
	if err != nil {
		return err
	}
	if neg {
		c = -c
	}
	m.Cents = c
	return nil
}
