// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"

	"gorm.io/gorm"
)

// User 用户模型
// 对应数据库表 users
type User struct {
	// ID 用户唯一标识，UUID 字符串
	ID string `gorm:"primaryKey;size:36" json:"user_id"`

	// Username 用户名，用于登录，全局唯一
	Username string `gorm:"size:50;uniqueIndex;not null" json:"username"`

	// Email 用户邮箱，全局唯一
	Email string `gorm:"size:100;uniqueIndex;not null" json:"email"`

	// PasswordHash 密码的 bcrypt 哈希值，不对外输出
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	// IsActive 账号是否可用
	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	// Settings 用户偏好设置，JSON 文本
	Settings string `gorm:"type:text" json:"settings"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Sessions 用户的全部会话，删除用户时级联删除
	Sessions []Session `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 在插入前补齐主键和默认设置
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}
		u.ID = id
	}
	if u.Settings == "" {
		u.Settings = "{}"
	}
	return nil
}
