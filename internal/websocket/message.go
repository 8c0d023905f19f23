// Package websocket 提供 WebSocket 聊天通道
// 客户端通过 /ws/chat 发送消息并实时收到回复，同一用户的其他连接同步收到新消息
package websocket

import (
	"encoding/json"
	"time"
)

// MessageType 消息类型常量
const (
	// 客户端 → 服务端
	TypeChatSend = "chat:send" // 发送聊天消息
	TypePing     = "ping"      // 心跳

	// 服务端 → 客户端
	TypeChatReply  = "chat:reply"  // 本连接发起的一轮对话结果
	TypeMessageNew = "message:new" // 其他连接或 HTTP 接口产生的新对话
	TypeError      = "error"       // 错误消息
	TypePong       = "pong"        // 心跳响应
)

// Message WebSocket 消息结构
// 所有消息都使用这个统一的结构
type Message struct {
	Type      string      `json:"type"`                 // 消息类型
	Payload   interface{} `json:"payload,omitempty"`    // 消息内容
	Timestamp int64       `json:"timestamp"`            // 时间戳（毫秒）
	MessageID string      `json:"message_id,omitempty"` // 客户端传入的消息ID，原样带回用于追踪
}

// inboundMessage 客户端发来的消息，Payload 延迟解析
type inboundMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	MessageID string          `json:"message_id,omitempty"`
}

// NewMessage 创建新消息
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewMessageWithID 创建带消息ID的新消息
func NewMessageWithID(msgType string, payload interface{}, messageID string) *Message {
	msg := NewMessage(msgType, payload)
	msg.MessageID = messageID
	return msg
}

// ChatSendPayload 发送聊天消息 Payload
// 字段与 POST /api/chat/message 的请求体一致
type ChatSendPayload struct {
	SessionID string `json:"session_id,omitempty"` // 为空时新建会话
	Message   string `json:"message"`              // 消息内容
	Model     string `json:"model,omitempty"`      // 可选，覆盖默认模型
}

// ErrorPayload 错误消息 Payload
type ErrorPayload struct {
	Code    int    `json:"code"`    // 业务错误码
	Status  int    `json:"status"`  // 对应的 HTTP 状态码
	Message string `json:"message"` // 错误信息
}
