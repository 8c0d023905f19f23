package service

import (
	"context"
	"errors"
	"strings"

	"chatbuddy/internal/model"
	"chatbuddy/internal/repository"
)

// ErrSessionNotFound 会话不存在或不属于当前用户
var ErrSessionNotFound = errors.New("会话不存在")

// SessionService 会话服务
// 所有操作都以用户为作用域，访问他人的会话与会话不存在等同
type SessionService struct {
	sessionRepo *repository.SessionRepository
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(sessionRepo *repository.SessionRepository) *SessionService {
	return &SessionService{sessionRepo: sessionRepo}
}

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Title string `json:"title" binding:"max=255"` // 为空时使用默认标题
}

// CreateSession 为用户创建新会话
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//   - req: 创建请求，可以为 nil
//
// 返回:
//   - *model.Session: 新建的会话
//   - error: 数据库错误
func (s *SessionService) CreateSession(ctx context.Context, userID string, req *CreateSessionRequest) (*model.Session, error) {
	session := &model.Session{UserID: userID}
	if req != nil {
		session.Title = strings.TrimSpace(req.Title)
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions 获取用户的全部会话，最新的在前
func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]model.Session, error) {
	return s.sessionRepo.ListByUser(ctx, userID)
}

// GetSession 获取用户的单个会话
// 返回:
//   - error: 不存在或不属于该用户时返回 ErrSessionNotFound
func (s *SessionService) GetSession(ctx context.Context, userID, sessionID string) (*model.Session, error) {
	session, err := s.sessionRepo.GetByIDAndUser(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// UpdateSessionRequest 修改会话请求
type UpdateSessionRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

// RenameSession 修改会话标题
func (s *SessionService) RenameSession(ctx context.Context, userID, sessionID string, req *UpdateSessionRequest) (*model.Session, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = model.DefaultSessionTitle
	}

	// 标题未变化时部分驱动的 RowsAffected 为 0，统一以再次查询的结果为准
	if _, err := s.sessionRepo.UpdateTitle(ctx, sessionID, userID, title); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, userID, sessionID)
}

// EndSession 结束会话，已结束的会话保持原结束时间
func (s *SessionService) EndSession(ctx context.Context, userID, sessionID string) (*model.Session, error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.EndSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, userID, sessionID)
}

// DeleteSession 删除会话及其全部消息
func (s *SessionService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	deleted, err := s.sessionRepo.Delete(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSessionNotFound
	}
	return nil
}
