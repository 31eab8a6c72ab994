package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Limiter 判断 key 在当前窗口内是否仍有配额。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit 按认证用户限流，未认证请求按来源 IP 限流。
// 限流器为 nil 或自身故障时放行，限流不应成为可用性短板。
func RateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := c.GetString("userID")
		if key == "" {
			key = c.ClientIP()
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("rate limit check failed",
				zap.String("key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": http.StatusTooManyRequests,
				"msg":  "请求过于频繁，请稍后再试",
			})
			return
		}

		c.Next()
	}
}
