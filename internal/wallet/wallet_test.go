package wallet

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsValidAddress(t *testing.T) {
	valid := "0x" + strings.Repeat("a1", 32)
	if !IsValidAddress(valid) {
		t.Fatalf("expected %s to be valid", valid)
	}

	invalid := []string{
		"",
		"0x",
		"0x" + strings.Repeat("a", 63),
		"0x" + strings.Repeat("a", 65),
		strings.Repeat("a", 66),
		"0x" + strings.Repeat("g", 64),
	}
	for _, s := range invalid {
		if IsValidAddress(s) {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}

func TestShortAddress(t *testing.T) {
	addr := "0x12ab34cd" + strings.Repeat("0", 52) + "beef"
	got := ShortAddress(addr)
	if got != "0x12ab34...beef" {
		t.Fatalf("short form %s", got)
	}
}

func TestSignAndVerifyPersonalMessage(t *testing.T) {
	ks, err := NewEphemeralKeystore()
	if err != nil {
		t.Fatalf("keystore: %v", err)
	}

	msg := []byte("paypath.app wants you to sign in")
	sig, err := ks.SignPersonalMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	addr, err := VerifyPersonalMessage(msg, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if addr != ks.Address() {
		t.Fatalf("recovered %s, want %s", addr, ks.Address())
	}
	if !IsValidAddress(addr) {
		t.Fatalf("derived address %s fails the syntactic check", addr)
	}

	if _, err := VerifyPersonalMessage([]byte("tampered"), sig); err == nil {
		t.Fatalf("expected verification failure for a different message")
	}
	if _, err := VerifyPersonalMessage(msg, "not-base64!!"); err == nil {
		t.Fatalf("expected malformed signature error")
	}
}

func TestKeystorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystore")

	first, err := OpenKeystore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	second, err := OpenKeystore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if first.Address() != second.Address() {
		t.Fatalf("address changed across opens: %s vs %s", first.Address(), second.Address())
	}
}
