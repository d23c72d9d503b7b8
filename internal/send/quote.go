package send

import (
	"encoding/json"
	"strings"

	"github.com/paypath/paypath/internal/money"
)

func jsonNumber(s string) json.Number {
	return json.Number(s)
}

// parseUnits reads a backend decimal amount into stablecoin base units. Unlike
// money.Parse it accepts zero, which a quote may legitimately report as fee.
func parseUnits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if isZero(s) {
		return 0, nil
	}
	return money.Parse(s, money.StablecoinDecimals)
}

func isZero(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range strings.TrimPrefix(s, "0") {
		if r != '.' && r != '0' {
			return false
		}
	}
	return strings.HasPrefix(s, "0")
}
