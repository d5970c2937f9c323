package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/pkg/metrics"
	"golang.org/x/time/rate"
)

const msgTooManyRequests = "Too many requests from this IP, please try again later."

// clientKey prefers the authenticated user id over the client IP.
func clientKey(c *gin.Context) string {
	if v, ok := c.Get(ClaimsKey); ok {
		if cm, ok := v.(map[string]interface{}); ok {
			if id, ok := cm["id"].(string); ok && id != "" {
				return "user:" + id
			}
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func rejectTooMany(c *gin.Context, retryAfter time.Duration, limiter string) {
	secs := int(retryAfter.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	metrics.RateLimitRejected.WithLabelValues(limiter).Inc()
	abort(c, http.StatusTooManyRequests, msgTooManyRequests)
}

// RateLimitMiddleware enforces a token bucket per client that refills max
// tokens every window. Each call owns its own set of buckets.
func RateLimitMiddleware(max int, window time.Duration) gin.HandlerFunc {
	var buckets sync.Map // map[string]*rate.Limiter
	every := rate.Limit(float64(max) / window.Seconds())
	return func(c *gin.Context) {
		key := clientKey(c)
		v, ok := buckets.Load(key)
		if !ok {
			v, _ = buckets.LoadOrStore(key, rate.NewLimiter(every, max))
		}
		lim := v.(*rate.Limiter)
		c.Header("RateLimit-Limit", strconv.Itoa(max))
		if !lim.Allow() {
			r := lim.Reserve()
			wait := r.Delay()
			r.Cancel()
			rejectTooMany(c, wait, "memory")
			return
		}
		c.Header("RateLimit-Remaining", strconv.Itoa(int(lim.Tokens())))
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
