package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testNonceContract(t *testing.T, nonces Nonces) {
	t.Helper()
	ctx := context.Background()
	const address = "0xaa"

	nonce, expiresAt, err := nonces.Issue(ctx, address)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if nonce == "" || !expiresAt.After(time.Now()) {
		t.Fatalf("nonce %q expires %v", nonce, expiresAt)
	}

	if ok, err := nonces.Consume(ctx, address, nonce); err != nil || !ok {
		t.Fatalf("consume: ok=%v err=%v", ok, err)
	}
	// Single use.
	if ok, err := nonces.Consume(ctx, address, nonce); err != nil || ok {
		t.Fatalf("nonce consumed twice: ok=%v err=%v", ok, err)
	}

	// A mismatched attempt spends the challenge too.
	burned, _, err := nonces.Issue(ctx, address)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ok, err := nonces.Consume(ctx, address, "wrong"); err != nil || ok {
		t.Fatalf("wrong nonce consumed: ok=%v err=%v", ok, err)
	}
	if ok, _ := nonces.Consume(ctx, address, burned); ok {
		t.Fatalf("challenge survived a failed attempt")
	}

	// A newer challenge displaces the older.
	stale, _, err := nonces.Issue(ctx, address)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	fresh, _, err := nonces.Issue(ctx, address)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ok, _ := nonces.Consume(ctx, address, stale); ok {
		t.Fatalf("stale nonce accepted")
	}
	_ = fresh
}

func TestMemoryNonces(t *testing.T) {
	testNonceContract(t, NewMemoryNonces(5*time.Minute))
}

func TestRedisNonces(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	testNonceContract(t, NewRedisNonces(client, 5*time.Minute))
}

func TestMemoryNoncesExpire(t *testing.T) {
	nonces := NewMemoryNonces(-time.Second) // already expired on issue
	nonce, _, err := nonces.Issue(context.Background(), "0xaa")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ok, _ := nonces.Consume(context.Background(), "0xaa", nonce); ok {
		t.Fatalf("expired nonce accepted")
	}
}
