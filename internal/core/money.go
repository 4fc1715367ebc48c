// Package core holds the ledger's domain types: envelopes, transactions
// and integer-cent money, plus the error taxonomy shared by every layer.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is a signed amount in cents. All arithmetic stays in integers;
// floating point only appears at display boundaries.
type Money struct {
	Cents int64
}

// ParseDecimalToCents converts a decimal string to positive cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted; the third
// decimal digit is rounded half-up. Signs, zero and malformed input are
// rejected with ErrInvalidAmount, since every ledger operation takes a
// strictly positive magnitude.
func ParseDecimalToCents(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return Money{}, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

// Validate rejects non-positive amounts. Operation inputs are always
// magnitudes; signs are assigned by the transaction constructors.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Neg returns the amount with its sign flipped.
func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// String renders the amount as a plain decimal, e.g. "-12.34".
func (m Money) String() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Float returns the amount in whole units for display purposes only.
// Use cents for calculations to avoid floating-point drift.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}
