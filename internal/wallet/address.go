package wallet

import "strings"

// addressHexLen is the fixed hex length of a chain address (32 bytes).
const addressHexLen = 64

// IsValidAddress performs the syntactic address check: a 0x prefix followed by
// exactly 64 lowercase-insensitive hex digits. Addresses are otherwise opaque.
func IsValidAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") {
		return false
	}
	hex := s[2:]
	if len(hex) != addressHexLen {
		return false
	}
	for _, r := range hex {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// ShortAddress renders the display form of an address: eight leading and four
// trailing characters.
func ShortAddress(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:8] + "..." + s[len(s)-4:]
}
