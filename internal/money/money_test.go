package money

import (
	"errors"
	"math"
	"testing"
)

func TestParseWholeAndFraction(t *testing.T) {
	units, err := Parse("1.50", StablecoinDecimals)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if units != 1_500_000 {
		t.Fatalf("expected 1500000 units, got %d", units)
	}

	units, err = Parse("10", StablecoinDecimals)
	if err != nil {
		t.Fatalf("parse whole: %v", err)
	}
	if units != 10_000_000 {
		t.Fatalf("expected 10000000 units, got %d", units)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []string{"", "abc", "-1", "0", "0.000000", "1.2345678", "1,5", "1.5e3"}
	for _, in := range cases {
		if _, err := Parse(in, StablecoinDecimals); err == nil {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func TestParseExactPrecisionBoundary(t *testing.T) {
	if _, err := Parse("0.000001", StablecoinDecimals); err != nil {
		t.Fatalf("six fractional digits should parse: %v", err)
	}
	if _, err := Parse("0.0000001", StablecoinDecimals); err == nil {
		t.Fatalf("seven fractional digits should be rejected")
	}
}

func TestParseRejectsAmountsPastInt64(t *testing.T) {
	// 9223372036854.775807 USDC is the last representable amount at six
	// decimals; anything past it must come back ErrInvalidAmount rather than
	// wrapping into a positive garbage value.
	max, err := Parse("9223372036854.775807", StablecoinDecimals)
	if err != nil {
		t.Fatalf("max representable amount should parse: %v", err)
	}
	if max != math.MaxInt64 {
		t.Fatalf("expected %d units, got %d", int64(math.MaxInt64), max)
	}

	over := []string{
		"9223372036854.775808",
		"9223372036855",
		"20000000000000",
		"99999999999999999999",
	}
	for _, in := range over {
		units, err := Parse(in, StablecoinDecimals)
		if err == nil {
			t.Fatalf("expected %q to be rejected, got %d units", in, units)
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for %q, got %v", in, err)
		}
	}
}

func TestFormatTrimsTrailingZeros(t *testing.T) {
	if got := Format(1_500_000, StablecoinDecimals); got != "1.5" {
		t.Fatalf("expected 1.5, got %s", got)
	}
	if got := Format(1_503_000, StablecoinDecimals); got != "1.503" {
		t.Fatalf("expected 1.503, got %s", got)
	}
	if got := Format(8_250_000, StablecoinDecimals); got != "8.25" {
		t.Fatalf("expected 8.25, got %s", got)
	}
	if got := Format(10_000_000, StablecoinDecimals); got != "10" {
		t.Fatalf("expected 10, got %s", got)
	}
}

func TestFeeMatchesReviewMath(t *testing.T) {
	// 0.2% of 1.50 USDC is exactly 0.003.
	amount := MustParse("1.50", StablecoinDecimals)
	fee := Fee(amount, 2, 1000)
	if fee != 3_000 {
		t.Fatalf("expected 3000 units, got %d", fee)
	}
	if Format(amount+fee, StablecoinDecimals) != "1.503" {
		t.Fatalf("total formats to %s", Format(amount+fee, StablecoinDecimals))
	}
}

func TestFeeDoesNotWrapOnHugeAmounts(t *testing.T) {
	fee := Fee(math.MaxInt64, 2, 1000)
	if fee <= 0 {
		t.Fatalf("fee on a huge amount wrapped: %d", fee)
	}
	if Fee(0, 2, 1000) != 0 {
		t.Fatalf("zero amount should carry no fee")
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, units := range []int64{1, 999_999, 1_000_000, 123_456_789} {
		s := Format(units, StablecoinDecimals)
		back, err := Parse(s, StablecoinDecimals)
		if err != nil {
			t.Fatalf("round trip %d: %v", units, err)
		}
		if back != units {
			t.Fatalf("round trip %d came back as %d", units, back)
		}
	}
}
