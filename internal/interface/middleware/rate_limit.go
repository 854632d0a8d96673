package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/account-service/internal/application"
	"github.com/oksasatya/account-service/internal/domain/cachekey"
	"github.com/oksasatya/account-service/pkg/metrics"
	"github.com/oksasatya/account-service/pkg/response"
)

// ipFromCtx extracts the client IP from Gin context, falling back to "unknown"
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString(CtxRealIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc returns the subject a request is counted against.
type KeyFunc func(c *gin.Context) string

// KeyByIP limits by client IP only
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + ipFromCtx(c) }
}

// KeyByIPAndPath limits by client IP and route
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string { return "path:" + normalizePath(c) + ":ip:" + ipFromCtx(c) }
}

// KeyByAccount limits by authenticated account, falling back to IP.
func KeyByAccount() KeyFunc {
	return func(c *gin.Context) string {
		if id := c.GetString(CtxAccountIDKey); id != "" {
			return "account:" + id
		}
		return "anon:ip:" + ipFromCtx(c)
	}
}

type AllowFunc func(*gin.Context) bool // return true for bypass limit

// RateLimit is a fixed-window limiter on the shared cache. When the cache
// is unavailable the request is let through.
type RateLimit struct {
	Cache   application.Cache
	Metrics *metrics.Metrics
}

func NewRateLimit(cache application.Cache, m *metrics.Metrics) *RateLimit {
	return &RateLimit{Cache: cache, Metrics: m}
}

// Limit allows max requests per window for each subject of keyFn within scope.
func (rl *RateLimit) Limit(scope string, max int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rl == nil || rl.Cache == nil || max <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if allow != nil && allow(c) {
			c.Next()
			return
		}
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		key := cachekey.RateLimit(scope, keyFn(c))
		count, ok := rl.Cache.Increment(c.Request.Context(), key, window)
		if !ok {
			c.Next()
			return
		}

		remaining := max - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > max {
			rl.Metrics.IncrementRateLimited(scope)
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Abort(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
