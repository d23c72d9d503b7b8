// Package money represents coin amounts as int64 base units with a declared
// decimal precision, avoiding floating point in quoting and balance checks.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// StablecoinDecimals is the precision of the stablecoin (USDC).
	StablecoinDecimals = 6
	// GasDecimals is the precision of the native gas coin (SUI).
	GasDecimals = 9
)

var (
	// ErrInvalidAmount occurs when an amount string is empty, malformed,
	// non-positive, or carries more fractional digits than the coin allows.
	ErrInvalidAmount = errors.New("Invalid amount")
)

var pow10 = [...]int64{1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000, 1_000_000_000}

// Parse converts a positive decimal string into base units at the given
// precision. Amounts with excess fractional digits are rejected rather than
// truncated.
func Parse(s string, decimals int) (int64, error) {
	if decimals < 0 || decimals >= len(pow10) {
		return 0, fmt.Errorf("unsupported precision %d", decimals)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, ErrInvalidAmount
	}
	if len(frac) > decimals {
		return 0, ErrInvalidAmount
	}

	units := int64(0)
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
		d := int64(r - '0')
		if units > (math.MaxInt64-d)/10 {
			return 0, ErrInvalidAmount
		}
		units = units*10 + d
	}
	// The scale-up must not wrap either.
	if units > math.MaxInt64/pow10[decimals] {
		return 0, ErrInvalidAmount
	}
	units *= pow10[decimals]

	if len(frac) > 0 {
		scale := pow10[decimals-len(frac)]
		fracUnits := int64(0)
		for _, r := range frac {
			if r < '0' || r > '9' {
				return 0, ErrInvalidAmount
			}
			fracUnits = fracUnits*10 + int64(r-'0')
		}
		if units > math.MaxInt64-fracUnits*scale {
			return 0, ErrInvalidAmount
		}
		units += fracUnits * scale
	}

	if units <= 0 {
		return 0, ErrInvalidAmount
	}
	return units, nil
}

// Format renders base units as a decimal string at the given precision,
// trimming trailing fractional zeros. The rendering is deterministic so two
// equal amounts always produce identical bytes.
func Format(units int64, decimals int) string {
	neg := units < 0
	if neg {
		units = -units
	}
	div := pow10[decimals]
	whole := units / div
	frac := units % div

	out := fmt.Sprintf("%d", whole)
	if frac > 0 {
		digits := fmt.Sprintf("%0*d", decimals, frac)
		digits = strings.TrimRight(digits, "0")
		out += "." + digits
	}
	if neg {
		out = "-" + out
	}
	return out
}

// Fee applies a rational fee rate (num/den) to an amount in base units,
// rounding half up. Amounts large enough to wrap the intermediate product
// saturate instead of wrapping.
func Fee(amount, num, den int64) int64 {
	if den == 0 || amount <= 0 || num <= 0 {
		return 0
	}
	if amount > (math.MaxInt64-den/2)/num {
		return math.MaxInt64 / den
	}
	return (amount*num + den/2) / den
}

// MustParse is a test helper that panics on malformed input.
func MustParse(s string, decimals int) int64 {
	units, err := Parse(s, decimals)
	if err != nil {
		panic(err)
	}
	return units
}
