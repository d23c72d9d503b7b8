package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Keystore is a file-backed Signer holding a single ed25519 key. It stands in
// for the browser wallet extension in the terminal client and in tests.
type Keystore struct {
	priv    ed25519.PrivateKey
	address string
}

// OpenKeystore loads the key at path, generating and persisting a fresh one
// when the file does not exist.
func OpenKeystore(path string) (*Keystore, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		seed, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil || len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("keystore %s is malformed", path)
		}
		return fromSeed(seed), nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)+"\n"), 0o600); err != nil {
		return nil, err
	}
	return fromSeed(seed), nil
}

// NewEphemeralKeystore generates a throwaway key. Useful for tests.
func NewEphemeralKeystore() (*Keystore, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return fromSeed(seed), nil
}

func fromSeed(seed []byte) *Keystore {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Keystore{priv: priv, address: AddressFromPublicKey(pub)}
}

// Address implements Signer.
func (k *Keystore) Address() string {
	if k == nil {
		return ""
	}
	return k.address
}

// SignPersonalMessage implements Signer.
func (k *Keystore) SignPersonalMessage(ctx context.Context, message []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	digest := PersonalMessageDigest(message)
	sig := ed25519.Sign(k.priv, digest[:])
	return SerializeSignature(sig, k.priv.Public().(ed25519.PublicKey)), nil
}
