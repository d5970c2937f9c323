package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/pkg/logger"
	"github.com/portfolio/portfolio/backend/go-services/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware provides a fixed-window Redis-backed limiter that
// admits max requests per client in each window, shared by every instance.
func RedisRateLimitMiddleware(client *redis.Client, max int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(max, window)
	}
	windowSeconds := int64(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	return func(c *gin.Context) {
		now := time.Now().Unix()
		bucket := now / windowSeconds
		redisKey := fmt.Sprintf("rl:%s:%d", clientKey(c), bucket)
		ctx := c.Request.Context()

		cnt, err := client.Incr(ctx, redisKey).Result()
		if err != nil {
			logger.L().Error("rate limit check failed", zap.Error(err))
			abort(c, http.StatusInternalServerError, "Rate limit check failed")
			return
		}
		if cnt == 1 {
			_ = client.Expire(ctx, redisKey, time.Duration(windowSeconds+1)*time.Second).Err()
		}
		c.Header("RateLimit-Limit", strconv.Itoa(max))
		if cnt > int64(max) {
			reset := (bucket+1)*windowSeconds - now
			rejectTooMany(c, time.Duration(reset)*time.Second, "redis")
			return
		}
		c.Header("RateLimit-Remaining", strconv.FormatInt(int64(max)-cnt, 10))
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
