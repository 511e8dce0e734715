package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sailakshmi-0987/Campus-recycle/internal/pkg/response"
)

// RateLimitConfig is a fixed-window limit (Express middleware/rateLimiter.js).
type RateLimitConfig struct {
	Rdb    *redis.Client
	Max    int
	Window time.Duration
	Prefix string // key namespace, e.g. "rl:api" or "rl:auth"
}

// RateLimit counts requests per client IP in Redis over a fixed window and
// returns 429 once the limit is exceeded. Fails open when Redis is down so a
// cache outage never takes the API with it.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Rdb == nil {
			return c.Next()
		}
		key := fmt.Sprintf("%s:%s", cfg.Prefix, c.IP())
		ctx := c.Context()

		count, err := cfg.Rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
			return c.Next()
		}
		if count == 1 {
			cfg.Rdb.Expire(ctx, key, cfg.Window)
		}
		if count > int64(cfg.Max) {
			ttl, _ := cfg.Rdb.TTL(ctx, key).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.Error(c, "Too many requests, please try again later", fiber.StatusTooManyRequests, nil)
		}
		return c.Next()
	}
}
