package auth

import "fmt"

// BuildMessage assembles the personal-signature authentication message. The
// layout is part of the contract with the backend verifier, which must accept
// exactly these bytes; do not reorder or reformat fields.
func BuildMessage(domain, address, statement, nonce, issuedAt, expirationTime string) string {
	return fmt.Sprintf(
		"%s wants you to sign in with your account:\n%s\n\n%s\n\nNonce: %s\nIssued At: %s\nExpiration Time: %s",
		domain, address, statement, nonce, issuedAt, expirationTime,
	)
}
