package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatbuddy/pkg/logger"
	"chatbuddy/pkg/response"
)

// RequestIDHeader 请求 ID 的请求/响应头
const RequestIDHeader = "X-Request-ID"

// LoggerMiddleware 创建请求日志中间件
// 为每个请求分配 request_id，并把带 request_id 的 logger 放入请求上下文
// 参数:
//   - base: 基础 logger
//
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func LoggerMiddleware(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		l := base.With("request_id", requestID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), l))

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if userID := GetUserID(c); userID != "" {
			attrs = append(attrs, "user_id", userID)
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			attrs = append(attrs, "error", errs)
		}

		// 按状态码选择日志级别
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			l.Warn("request", attrs...)
		default:
			l.Info("request", attrs...)
		}
	}
}

// RecoveryMiddleware 创建 panic 恢复中间件
// 捕获处理器中的 panic，返回统一的 500 响应
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.FromContext(c.Request.Context()).Error("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
				)
				response.InternalError(c, "internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
