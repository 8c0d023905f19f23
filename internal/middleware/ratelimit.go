package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"chatbuddy/internal/cache"
	"chatbuddy/pkg/logger"
	"chatbuddy/pkg/response"
)

// RateLimitMiddleware 创建按用户的令牌桶限流中间件
// 需要放在 AuthMiddleware 之后；缓存不可用时放行请求
// 参数:
//   - store: 缓存实例
//   - scope: 限流作用域，用于区分不同接口组
//   - qps: 每秒补充的令牌数
func RateLimitMiddleware(store cache.Store, scope string, qps int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := GetUserID(c)
		if key == "" {
			key = c.ClientIP()
		}

		result, err := store.Allow(c.Request.Context(), scope+":"+key, qps)
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("rate limiter unavailable, allowing request",
				"scope", scope,
				"error", err,
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(result.RetryAfter))
			response.TooManyRequests(c, "too many requests, please slow down")
			c.Abort()
			return
		}

		c.Next()
	}
}
