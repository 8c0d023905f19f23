package websocket

import (
	"context"
	"log/slog"
	"sync"

	"chatbuddy/internal/service"
)

type originKey struct{}

// withOrigin 记录发起本轮对话的连接，广播时跳过它
func withOrigin(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, originKey{}, c)
}

func originFrom(ctx context.Context) *Client {
	c, _ := ctx.Value(originKey{}).(*Client)
	return c
}

// Hub 是 WebSocket 连接的中心管理器
// 按用户管理连接，一个用户可以同时有多个连接（多设备）
type Hub struct {
	// userID -> 该用户的全部连接
	clients map[string]map[*Client]struct{}

	// 互斥锁，保护并发访问
	mu sync.RWMutex

	logger *slog.Logger
}

// NewHub 创建 Hub 实例
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Run 阻塞直到 ctx 结束，然后关闭全部连接
// 应该在单独的 goroutine 中运行
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.clients {
		for c := range set {
			c.Close()
		}
		delete(h.clients, userID)
	}
	h.logger.Info("websocket hub stopped")
}

// Register 注册客户端
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.logger.Debug("websocket client registered", "user_id", c.userID, "connections", len(set))
}

// Unregister 注销客户端并关闭其发送通道
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	c.Close()
	h.logger.Debug("websocket client unregistered", "user_id", c.userID)
}

// ConnectionCount 返回用户当前的连接数
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// NotifyChatTurn 把一轮对话推送给用户的连接
// 发起该轮对话的连接已经收到 chat:reply，不再重复推送
func (h *Hub) NotifyChatTurn(ctx context.Context, userID string, resp *service.ChatResponse) {
	origin := originFrom(ctx)
	msg := NewMessage(TypeMessageNew, resp)

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		if c != origin {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.SendMessage(msg)
	}
}
