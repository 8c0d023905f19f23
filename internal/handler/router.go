package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatbuddy/internal/cache"
	"chatbuddy/internal/config"
	"chatbuddy/internal/middleware"
	"chatbuddy/pkg/jwt"
)

// RouterDeps 构建路由所需的依赖
type RouterDeps struct {
	Logger    *slog.Logger
	JWT       *jwt.JWTService
	Cache     cache.Store
	CORS      []string
	RateLimit config.RateLimitConfig
	Auth      *AuthHandler
	User      *UserHandler
	Session   *SessionHandler
	Chat      *ChatHandler
	Health    *HealthHandler
}

// NewRouter 创建 Gin 引擎并注册全部 HTTP 路由
// WebSocket 路由由调用方另行注册
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()

	// 全局中间件
	router.Use(middleware.LoggerMiddleware(d.Logger))                              // 请求日志
	router.Use(middleware.RecoveryMiddleware())                                    // 恢复 panic
	router.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(d.CORS...))) // CORS

	// 健康检查
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": Version})
	})
	router.GET("/health", d.Health.Health)

	auth := middleware.AuthMiddleware(d.JWT, d.Cache)
	api := router.Group("/api")

	// 用户相关
	users := api.Group("/users")
	{
		users.POST("/register", d.Auth.Register)
		users.POST("/login", d.Auth.Login)
		users.POST("/refresh", d.Auth.RefreshToken)
		users.POST("/logout", auth, d.Auth.Logout)
		users.GET("/me", auth, d.User.GetMe)
		users.PUT("/me/settings", auth, d.User.UpdateSettings)
		users.PUT("/me/password", auth, d.User.ChangePassword)
	}

	// 会话相关（需要登录）
	sessions := api.Group("/sessions")
	sessions.Use(auth)
	{
		sessions.POST("/", d.Session.CreateSession)
		sessions.GET("/", d.Session.ListSessions)
		sessions.GET("/:id", d.Session.GetSession)
		sessions.PUT("/:id", d.Session.UpdateSession)
		sessions.DELETE("/:id", d.Session.DeleteSession)
		sessions.POST("/:id/end", d.Session.EndSession)
	}

	// 聊天相关（需要登录）
	chat := api.Group("/chat")
	chat.Use(auth)
	{
		send := []gin.HandlerFunc{d.Chat.SendMessage}
		if d.RateLimit.Enabled {
			send = append([]gin.HandlerFunc{middleware.RateLimitMiddleware(d.Cache, "chat", d.RateLimit.QPS)}, send...)
		}
		chat.POST("/message", send...)
		chat.GET("/messages/:session_id", d.Chat.GetMessages)
	}

	return router
}
