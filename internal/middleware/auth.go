// Package middleware 提供 HTTP 请求的中间件
// 包括 JWT 认证、CORS 跨域、请求日志、限流等
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"chatbuddy/internal/cache"
	"chatbuddy/pkg/jwt"
	"chatbuddy/pkg/response"
	"chatbuddy/pkg/util"
)

// 上下文中的键
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextToken    = "token"
	ContextTokenExp = "token_exp"
)

// AuthMiddleware 创建 JWT 认证中间件
// 验证请求头中的 Bearer Token，并将用户信息存入上下文
// 参数:
//   - jwtService: JWT 服务实例，用于解析和验证 Token
//   - store: 缓存实例，用于检查 Token 黑名单
//
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func AuthMiddleware(jwtService *jwt.JWTService, store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从请求头获取 Authorization 字段
		// 格式: "Bearer <token>"
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "not authenticated")
			c.Abort()
			return
		}

		// 2. 解析 Bearer Token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		tokenString := parts[1]

		// 3. 验证签名、过期时间和 Token 类型
		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "could not validate credentials")
			c.Abort()
			return
		}

		// 4. 登出后的 Token 在黑名单中，只存哈希
		if store.IsTokenBlacklisted(c.Request.Context(), util.HashToken(tokenString)) {
			response.Unauthorized(c, "token has been revoked")
			c.Abort()
			return
		}

		// 5. 将用户信息存入上下文
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextToken, tokenString)              // 登出时计算哈希
		c.Set(ContextTokenExp, claims.ExpiresAt.Time) // 登出时作为黑名单 TTL

		c.Next()
	}
}

// GetUserID 从上下文获取用户 ID
// 返回:
//   - string: 用户 ID，未认证时返回空串
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// GetUsername 从上下文获取用户名
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextUsername)
}
