package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const challengePrefix = "paypath:rl:challenge:"

// ChallengeRateLimit caps how many login challenges one wallet may request
// per minute. The counter lives in Redis; without a cache, or when the cache
// errors, the limiter fails open.
func ChallengeRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		address := c.Query("address")
		if address == "" {
			address = c.IP()
		}
		key := challengePrefix + address
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many challenge requests, try again later")
		}
		return c.Next()
	}
}
