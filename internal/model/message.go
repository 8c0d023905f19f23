package model

import (
	"time"

	"gorm.io/gorm"
)

// 消息发送方
const (
	SenderUser   = "user"   // 用户发送
	SenderAI     = "ai"     // 大模型回复
	SenderSystem = "system" // 系统消息
)

// Message 消息模型
// 对应数据库表 messages，按 timestamp 升序即为对话顺序
type Message struct {
	// ID 消息唯一标识，UUIDv7，同一时间戳下按生成顺序递增
	ID string `gorm:"primaryKey;size:36" json:"message_id"`

	// SessionID 所属会话
	SessionID string `gorm:"size:36;index:idx_messages_session_ts,priority:1;not null" json:"session_id"`

	// Sender 发送方: user / ai / system
	Sender string `gorm:"size:10;not null" json:"sender"`

	// Content 消息正文
	Content string `gorm:"type:text;not null" json:"content"`

	// Timestamp 消息时间
	Timestamp time.Time `gorm:"not null;index:idx_messages_session_ts,priority:2" json:"timestamp"`

	// Embedding 向量占位字段，当前不使用
	Embedding *string `gorm:"type:text" json:"-"`

	// Session 所属会话（多对一关系）
	Session *Session `gorm:"foreignKey:SessionID" json:"-"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate 在插入前补齐主键和时间戳
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}
		m.ID = id
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = Now()
	}
	return nil
}
