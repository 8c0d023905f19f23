package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatbuddy/internal/service"
	"chatbuddy/pkg/response"
)

// ChatSender 处理一轮对话，*service.ChatService 实现了该接口
type ChatSender interface {
	SendMessage(ctx context.Context, userID string, req *service.SendMessageRequest) (*service.ChatResponse, error)
}

// Client 表示一个 WebSocket 客户端连接
type Client struct {
	hub    *Hub            // 所属的 Hub
	conn   *websocket.Conn // WebSocket 连接
	send   chan []byte     // 发送消息的通道
	userID string          // 用户ID
	chat   ChatSender      // 聊天编排服务
	logger *slog.Logger

	// 连接生命周期，断开后取消；已保存用户消息的对话仍会完成并落库
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex // 保护 closed 与 send 的关闭
	closed bool
}

// 连接配置常量
const (
	// 写超时时间
	writeWait = 10 * time.Second

	// 等待 Pong 响应的超时时间
	pongWait = 60 * time.Second

	// 发送 Ping 的间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小（64KB）
	maxMessageSize = 64 * 1024
)

// NewClient 创建新的客户端
func NewClient(hub *Hub, conn *websocket.Conn, userID string, chat ChatSender, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 64),
		userID: userID,
		chat:   chat,
		logger: logger.With("user_id", userID),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ReadPump 从 WebSocket 读取消息并分发
// 每个客户端连接启动一个 ReadPump
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	// 每次收到 Pong，重置读取超时
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("", response.CodeBadRequest, http.StatusBadRequest, "malformed message")
			continue
		}
		c.handleMessage(&msg)
	}
}

// WritePump 从 send 通道读取消息并写入 WebSocket，同时定时发送 Ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// send 通道已关闭
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 向客户端发送消息
// 缓冲区满时丢弃消息，不阻塞调用方
func (c *Client) SendMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("websocket client closed")
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("websocket send buffer full, dropping message", "type", msg.Type)
		return errors.New("websocket send buffer full")
	}
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(msg *inboundMessage) {
	switch msg.Type {
	case TypePing:
		c.SendMessage(NewMessageWithID(TypePong, nil, msg.MessageID))

	case TypeChatSend:
		var payload ChatSendPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || strings.TrimSpace(payload.Message) == "" {
			c.sendError(msg.MessageID, response.CodeBadRequest, http.StatusBadRequest, "message is required")
			return
		}
		// 大模型调用可能较慢，不阻塞读循环
		go c.handleChatSend(msg.MessageID, &payload)

	default:
		c.sendError(msg.MessageID, response.CodeBadRequest, http.StatusBadRequest, "unknown message type: "+msg.Type)
	}
}

// handleChatSend 执行一轮对话并把结果发回本连接
func (c *Client) handleChatSend(messageID string, payload *ChatSendPayload) {
	resp, err := c.chat.SendMessage(withOrigin(c.ctx, c), c.userID, &service.SendMessageRequest{
		SessionID: payload.SessionID,
		Message:   payload.Message,
		Model:     payload.Model,
	})
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.sendError(messageID, response.CodeSessionNotFound, http.StatusNotFound, "session not found")
			return
		}
		if c.ctx.Err() == nil {
			c.logger.Error("websocket chat failed", "error", err)
		}
		c.sendError(messageID, response.CodeInternalError, http.StatusInternalServerError, "failed to process message")
		return
	}

	c.SendMessage(NewMessageWithID(TypeChatReply, resp, messageID))
}

func (c *Client) sendError(messageID string, code, status int, message string) {
	c.SendMessage(NewMessageWithID(TypeError, &ErrorPayload{
		Code:    code,
		Status:  status,
		Message: message,
	}, messageID))
}

// Close 关闭发送通道并取消进行中的对话，可重复调用
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	close(c.send)
}
