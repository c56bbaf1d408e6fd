// Package core provides money parsing and handling utilities.
//
// Amounts are accepted with at most 12 digits, 10 of them before the
// decimal point and 2 after, and are stored exactly as cents. Rendered
// values are rounded half-up to two decimal places.
package core

import (
	"errors"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	maxDigits      = 12
	maxDecimals    = 2
	maxWholeDigits = maxDigits - maxDecimals
)

// maxCents is the first value that no longer fits 12 digits with 2 decimals.
const maxCents int64 = 1_000_000_000_000

// Money is an amount expressed in cents.
type Money struct {
	Cents int64
}

// ParseAmount converts a decimal string to Money.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12.3")   -> 1230
//	ParseAmount("12.345") -> ErrTooManyDecimals
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return AmountFromDecimal(d)
}

// AmountFromDecimal converts d to cents. Precision is checked before any
// arithmetic so exponents like 1e99999999 are rejected without being
// expanded. Negative values are rejected.
func AmountFromDecimal(d decimal.Decimal) (Money, error) {
	if err := checkPrecision(d); err != nil {
		return Money{}, err
	}
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Shift(maxDecimals).IntPart()}, nil
}

// checkPrecision counts digits from the coefficient and exponent of d, the
// way trailing zeros count in "1.230" (3 decimal places).
func checkPrecision(d decimal.Decimal) error {
	coef := new(big.Int).Abs(d.Coefficient())
	// more than 19 digits is over any limit here
	if coef.BitLen() > 63 {
		return ErrAmountTooLarge
	}
	digits := int64(len(coef.String()))
	exp := int64(d.Exponent())

	var total, whole, places int64
	switch {
	case exp >= 0:
		total = digits + exp
		whole = total
	case digits > -exp:
		total = digits
		places = -exp
		whole = total - places
	default:
		total = -exp
		places = total
	}

	switch {
	case total > maxDigits:
		return ErrAmountTooLarge
	case places > maxDecimals:
		return ErrTooManyDecimals
	case whole > maxWholeDigits:
		return ErrTooManyWholeDigits
	}
	return nil
}

// AmountMessage returns the client-facing field message for an amount error.
func AmountMessage(err error) string {
	switch {
	case errors.Is(err, ErrAmountTooLarge):
		return "Ensure that there are no more than 12 digits in total."
	case errors.Is(err, ErrTooManyDecimals):
		return "Ensure that there are no more than 2 decimal places."
	case errors.Is(err, ErrTooManyWholeDigits):
		return "Ensure that there are no more than 10 digits before the decimal point."
	default:
		return "Ensure this value is greater than or equal to 0.01."
	}
}

// Validate accepts amounts between 0.01 and 9999999999.99.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents >= maxCents {
		return ErrTooManyWholeDigits
	}
	return nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) String() string {
	return FormatAmount(m.Decimal())
}

// MarshalJSON renders the amount as a quoted 2-decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// FormatAmount rounds d half-up (away from zero) to two places and always
// renders both decimals, e.g. 12.3 -> "12.30", 1.005 -> "1.01".
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
