package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/wb-go/wbf/zlog"
)

// RateLimiterConfig configures NewRateLimiter.
type RateLimiterConfig struct {
	RedisClient *redis.Client
	Limit       int
	Window      time.Duration
	KeyPrefix   string
	Extractor   func(c *gin.Context) string // client key, c.ClientIP() by default
}

// NewRateLimiter limits write requests (POST, PUT, PATCH, DELETE) per client
// with a fixed window counter in Redis. Reads are never limited; video
// generation is the expensive part. When Redis is unavailable requests pass.
//
// The default key is gin's ClientIP, which honours X-Forwarded-For only from
// the engine's trusted proxies.
func NewRateLimiter(cfg RateLimiterConfig) gin.HandlerFunc {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:"
	}
	if cfg.Extractor == nil {
		cfg.Extractor = func(c *gin.Context) string { return c.ClientIP() }
	}

	return func(c *gin.Context) {
		if cfg.Limit <= 0 || !isWrite(c.Request.Method) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		id := cfg.Extractor(c)
		if id == "" {
			id = "anonymous"
		}
		key := cfg.KeyPrefix + id

		// The window key is created with its TTL, so a counter never outlives it.
		var (
			incr *redis.IntCmd
			ttl  *redis.DurationCmd
		)
		_, err := cfg.RedisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetNX(ctx, key, 0, cfg.Window)
			incr = pipe.Incr(ctx, key)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			zlog.Logger.Warn().Err(err).Msg("rate limiter unavailable")
			c.Next()
			return
		}

		count := incr.Val()
		reset := int(ttl.Val().Seconds())
		if reset < 0 {
			reset = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Reset", strconv.Itoa(reset))

		if count > int64(cfg.Limit) {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(reset))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":           "rate limit exceeded",
				"retry_after_sec": reset,
			})
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", int64(cfg.Limit)-count))
		c.Next()
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
