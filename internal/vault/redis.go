package vault

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionKey = "paypath:session:v1"
	redisOpTimeout  = 2 * time.Second
)

type redisVault struct {
	cache *redis.Client
}

// NewRedis builds a vault that stores the session pair as one Redis value, so
// token and token type change together.
func NewRedis(cache *redis.Client) Vault {
	return &redisVault{cache: cache}
}

func (v *redisVault) Read() (Session, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := v.cache.Get(ctx, redisSessionKey).Result()
	if err != nil {
		return Session{}, false
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return Session{}, false
	}
	if !session.Valid() {
		return Session{}, false
	}
	return session, true
}

func (v *redisVault) Write(session Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return v.cache.Set(ctx, redisSessionKey, raw, 0).Err()
}

func (v *redisVault) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	return v.cache.Del(ctx, redisSessionKey).Err()
}
