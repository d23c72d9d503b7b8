package wallet

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// schemeEd25519 is the signature scheme flag prepended to serialized
// signatures and to public keys when deriving addresses.
const schemeEd25519 = 0x00

// personalMessageIntent scopes a signature to personal messages so it can
// never be replayed as a transaction signature.
var personalMessageIntent = []byte{3, 0, 0}

var (
	// ErrSignatureMalformed indicates a serialized signature that does not
	// decode to flag, signature and public key.
	ErrSignatureMalformed = errors.New("wallet returned invalid signature format")
)

// PersonalMessageDigest computes the 32-byte digest a wallet signs for a
// personal message: blake2b-256 over the intent prefix, a uleb128 length, and
// the message bytes.
func PersonalMessageDigest(message []byte) [32]byte {
	payload := make([]byte, 0, len(personalMessageIntent)+10+len(message))
	payload = append(payload, personalMessageIntent...)
	payload = appendULEB128(payload, uint64(len(message)))
	payload = append(payload, message...)
	return blake2b.Sum256(payload)
}

// SerializeSignature packs flag, signature and public key into the base64
// form the backend verifier expects.
func SerializeSignature(sig []byte, pub ed25519.PublicKey) string {
	out := make([]byte, 0, 1+len(sig)+len(pub))
	out = append(out, schemeEd25519)
	out = append(out, sig...)
	out = append(out, pub...)
	return base64.StdEncoding.EncodeToString(out)
}

// VerifyPersonalMessage checks a serialized signature over message and returns
// the address derived from the embedded public key.
func VerifyPersonalMessage(message []byte, serialized string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(serialized)
	if err != nil {
		return "", ErrSignatureMalformed
	}
	if len(raw) != 1+ed25519.SignatureSize+ed25519.PublicKeySize || raw[0] != schemeEd25519 {
		return "", ErrSignatureMalformed
	}
	sig := raw[1 : 1+ed25519.SignatureSize]
	pub := ed25519.PublicKey(raw[1+ed25519.SignatureSize:])

	digest := PersonalMessageDigest(message)
	if !ed25519.Verify(pub, digest[:], sig) {
		return "", errors.New("signature verification failed")
	}
	return AddressFromPublicKey(pub), nil
}

// AddressFromPublicKey derives the account address: blake2b-256 over the
// scheme flag and the public key bytes, hex encoded with a 0x prefix.
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	payload := make([]byte, 0, 1+len(pub))
	payload = append(payload, schemeEd25519)
	payload = append(payload, pub...)
	sum := blake2b.Sum256(payload)
	return "0x" + hex.EncodeToString(sum[:])
}

func appendULEB128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
			continue
		}
		return append(buf, b)
	}
}
