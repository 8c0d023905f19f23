package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"chatbuddy/internal/middleware"
	"chatbuddy/internal/service"
	"chatbuddy/pkg/logger"
	"chatbuddy/pkg/response"
)

// UserHandler 用户请求处理器
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler 创建 UserHandler 实例
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetMe 获取当前用户
// @Summary 获取当前用户
// @Tags 用户
// @Security Bearer
// @Produce json
// @Success 200 {object} response.Response{data=model.User}
// @Router /api/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetProfile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.writeError(c, "get profile", err)
		return
	}
	response.Success(c, user)
}

// UpdateSettings 更新用户设置
// @Summary 更新用户设置
// @Tags 用户
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body service.UpdateSettingsRequest true "设置"
// @Success 200 {object} response.Response{data=model.User}
// @Router /api/users/me/settings [put]
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	var req service.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.userService.UpdateSettings(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		h.writeError(c, "update settings", err)
		return
	}
	response.Success(c, user)
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags 用户
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body service.ChangePasswordRequest true "密码信息"
// @Success 200 {object} response.Response
// @Router /api/users/me/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), middleware.GetUserID(c), &req); err != nil {
		h.writeError(c, "change password", err)
		return
	}
	response.SuccessWithMessage(c, "password updated", nil)
}

func (h *UserHandler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, "user not found")
	case errors.Is(err, service.ErrInvalidSettings):
		response.BadRequest(c, "settings must be a JSON object")
	case errors.Is(err, service.ErrPasswordWrong):
		response.BadRequest(c, "old password is incorrect")
	default:
		logger.FromContext(c.Request.Context()).Error(op+" failed", "error", err)
		response.InternalError(c, op+" failed")
	}
}
