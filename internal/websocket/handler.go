package websocket

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatbuddy/internal/cache"
	"chatbuddy/pkg/jwt"
	"chatbuddy/pkg/response"
	"chatbuddy/pkg/util"
)

// Handler 处理 WebSocket 连接
type Handler struct {
	hub        *Hub
	chat       ChatSender
	jwtService *jwt.JWTService
	store      cache.Store
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHandler 创建 WebSocket Handler
// 参数:
//   - hub: 连接管理器
//   - chat: 聊天编排服务
//   - jwtService: 用于校验 query 中的 token
//   - store: Token 黑名单
//   - allowedOrigins: 允许的 Origin，包含 * 时不做检查
func NewHandler(hub *Hub, chat ChatSender, jwtService *jwt.JWTService, store cache.Store, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		hub:        hub,
		chat:       chat,
		jwtService: jwtService,
		store:      store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		logger: logger,
	}
}

// checkOrigin 按 CORS 配置校验 Origin，非浏览器客户端不带 Origin 时放行
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// HandleChatWS 处理聊天 WebSocket 连接
// 路由: GET /ws/chat
// 参数: token (query parameter) - Access Token，也可以放在 Authorization 头中
func (h *Handler) HandleChatWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		response.Unauthorized(c, "token is required")
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		response.Unauthorized(c, "could not validate credentials")
		return
	}
	if h.store.IsTokenBlacklisted(c.Request.Context(), util.HashToken(token)) {
		response.Unauthorized(c, "token has been revoked")
		return
	}

	// 升级 HTTP 连接为 WebSocket，失败时 upgrader 已写回错误响应
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn, claims.UserID, h.chat, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// RegisterRoutes 注册 WebSocket 路由
// WebSocket 路由不经过认证中间件，token 在 query 中验证
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/chat", h.HandleChatWS)
}
