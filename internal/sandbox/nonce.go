package sandbox

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Nonces issues and consumes single-use login challenges per address.
type Nonces interface {
	Issue(ctx context.Context, address string) (nonce string, expiresAt time.Time, err error)
	// Consume atomically spends the challenge for an address. Any attempt
	// spends it, matching or not: a failed verify is never retriable with
	// the same challenge. It reports false for a mismatched, unknown,
	// expired or already-used nonce.
	Consume(ctx context.Context, address, nonce string) (bool, error)
}

func newNonce() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

type memoryNonces struct {
	ttl time.Duration

	mu      sync.Mutex
	pending map[string]nonceEntry // keyed by address
}

type nonceEntry struct {
	nonce     string
	expiresAt time.Time
}

// NewMemoryNonces keeps challenges in process memory, one live challenge per
// address. A newer challenge displaces the older.
func NewMemoryNonces(ttl time.Duration) Nonces {
	return &memoryNonces{ttl: ttl, pending: make(map[string]nonceEntry)}
}

func (n *memoryNonces) Issue(_ context.Context, address string) (string, time.Time, error) {
	nonce, err := newNonce()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().UTC().Add(n.ttl)
	n.mu.Lock()
	n.pending[address] = nonceEntry{nonce: nonce, expiresAt: expiresAt}
	n.mu.Unlock()
	return nonce, expiresAt, nil
}

func (n *memoryNonces) Consume(_ context.Context, address, nonce string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	entry, ok := n.pending[address]
	if !ok {
		return false, nil
	}
	delete(n.pending, address)
	if entry.nonce != nonce || time.Now().UTC().After(entry.expiresAt) {
		return false, nil
	}
	return true, nil
}

const noncePrefix = "paypath:nonce:v1:"

type redisNonces struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisNonces keeps challenges in Redis so multiple sandbox instances can
// share them. Expiry rides on the key TTL.
func NewRedisNonces(client *redis.Client, ttl time.Duration) Nonces {
	return &redisNonces{client: client, ttl: ttl}
}

func (n *redisNonces) Issue(ctx context.Context, address string) (string, time.Time, error) {
	nonce, err := newNonce()
	if err != nil {
		return "", time.Time{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := n.client.Set(ctx, noncePrefix+address, nonce, n.ttl).Err(); err != nil {
		return "", time.Time{}, err
	}
	return nonce, time.Now().UTC().Add(n.ttl), nil
}

func (n *redisNonces) Consume(ctx context.Context, address, nonce string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	stored, err := n.client.GetDel(ctx, noncePrefix+address).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored == nonce, nil
}
