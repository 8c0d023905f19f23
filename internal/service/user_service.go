package service

import (
	"context"
	"encoding/json"
	"errors"

	"chatbuddy/internal/model"
	"chatbuddy/internal/repository"
	"chatbuddy/pkg/util"
)

// 用户服务相关错误
var (
	ErrInvalidSettings = errors.New("settings 必须是 JSON 对象")
	ErrPasswordWrong   = errors.New("原密码错误")
)

// UserService 用户服务
// 处理用户信息的查询和更新
type UserService struct {
	userRepo *repository.UserRepository
}

// NewUserService 创建 UserService 实例
func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetProfile 获取用户资料
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateSettingsRequest 更新用户设置请求
type UpdateSettingsRequest struct {
	Settings json.RawMessage `json:"settings" binding:"required"`
}

// UpdateSettings 整体替换用户的偏好设置
// settings 必须是 JSON 对象
func (s *UserService) UpdateSettings(ctx context.Context, userID string, req *UpdateSettingsRequest) (*model.User, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(req.Settings, &obj); err != nil || obj == nil {
		return nil, ErrInvalidSettings
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"settings": string(req.Settings)}); err != nil {
		return nil, err
	}
	user.Settings = string(req.Settings)
	return user, nil
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// ChangePassword 修改密码
func (s *UserService) ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !util.CheckPassword(req.OldPassword, user.PasswordHash) {
		return ErrPasswordWrong
	}

	hash, err := util.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"password_hash": hash})
}
