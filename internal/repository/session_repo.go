package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"chatbuddy/internal/model"
)

// SessionRepository 会话数据访问层
// 所有按 ID 的查询都带上 user_id 条件，保证会话只对所有者可见
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建 SessionRepository 实例
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create 创建新会话
// 参数:
//   - ctx: 上下文
//   - session: 会话对象，ID、标题和开始时间为空时自动填充
//
// 返回:
//   - error: 数据库错误
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetByIDAndUser 获取属于指定用户的会话
// 参数:
//   - ctx: 上下文
//   - id: 会话ID
//   - userID: 用户ID
//
// 返回:
//   - *model.Session: 会话对象；不存在或不属于该用户时返回 nil
//   - error: 数据库错误
func (r *SessionRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// ListByUser 获取用户的全部会话，最新的在前
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]model.Session, error) {
	sessions := make([]model.Session, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_time DESC").
		Find(&sessions).Error
	return sessions, err
}

// UpdateTitle 修改会话标题
// 返回:
//   - bool: 是否命中了该用户的会话
//   - error: 数据库错误
func (r *SessionRepository) UpdateTitle(ctx context.Context, id, userID, title string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("title", title)
	return result.RowsAffected > 0, result.Error
}

// EndSession 记录会话结束时间，已结束的会话保持原值
func (r *SessionRepository) EndSession(ctx context.Context, id, userID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ? AND user_id = ? AND end_time IS NULL", id, userID).
		Update("end_time", model.Now()).Error
}

// Delete 删除属于指定用户的会话及其全部消息
// 在同一事务中先删除消息再删除会话，不依赖数据库是否启用外键级联
// 返回:
//   - bool: 是否删除了会话
//   - error: 数据库错误
func (r *SessionRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Session{}).
			Where("id = ? AND user_id = ?", id, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}

		if err := tx.Where("session_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Session{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	return deleted, err
}
