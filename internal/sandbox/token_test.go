package sandbox

import (
	"testing"
	"time"
)

func TestMintAndVerifyToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := MintToken("user-1", "0xabc", time.Hour, secret)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := VerifyToken(token, secret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims["sub"] != "user-1" || claims["addr"] != "0xabc" {
		t.Fatalf("claims = %v", claims)
	}
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	secret := []byte("test-secret")
	token, err := MintToken("user-1", "0xabc", time.Hour, secret)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := VerifyToken(token, []byte("other-secret")); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
	if _, err := VerifyToken(token+"x", secret); err == nil {
		t.Fatalf("expected error for modified signature")
	}
	if _, err := VerifyToken("not-a-token", secret); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := MintToken("user-1", "0xabc", -time.Minute, secret)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := VerifyToken(token, secret); err == nil {
		t.Fatalf("expected error for expired token")
	}
}
