package model

import (
	"time"

	"gorm.io/gorm"
)

// DefaultSessionTitle 新会话的默认标题
const DefaultSessionTitle = "New Conversation"

// Session 会话模型
// 对应数据库表 sessions，一个用户可以拥有多个会话
type Session struct {
	// ID 会话唯一标识，UUID 字符串
	ID string `gorm:"primaryKey;size:36" json:"session_id"`

	// UserID 所属用户
	UserID string `gorm:"size:36;index;not null" json:"user_id"`

	// Title 会话标题，可重命名
	Title string `gorm:"size:255;not null;default:'New Conversation'" json:"title"`

	// SummaryText 会话摘要，预留字段
	SummaryText *string `gorm:"type:text" json:"summary_text"`

	// StartTime 会话开始时间
	StartTime time.Time `gorm:"not null;index" json:"start_time"`

	// EndTime 会话结束时间，未结束时为空
	EndTime *time.Time `json:"end_time"`

	// User 所属用户（多对一关系）
	User *User `gorm:"foreignKey:UserID" json:"-"`

	// Messages 会话中的所有消息，删除会话时级联删除
	Messages []Message `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定表名
func (Session) TableName() string {
	return "sessions"
}

// BeforeCreate 在插入前补齐主键、标题和开始时间
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}
		s.ID = id
	}
	if s.Title == "" {
		s.Title = DefaultSessionTitle
	}
	if s.StartTime.IsZero() {
		s.StartTime = Now()
	}
	return nil
}

// IsEnded 会话是否已结束
func (s *Session) IsEnded() bool {
	return s.EndTime != nil
}
