// Package handler 提供 HTTP 请求处理器
// Handler 只负责参数解析、调用服务层和错误映射
package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"chatbuddy/internal/middleware"
	"chatbuddy/internal/service"
	"chatbuddy/pkg/logger"
	"chatbuddy/pkg/response"
	"chatbuddy/pkg/util"
)

// AuthHandler 认证请求处理器
// 处理用户注册、登录、刷新和登出
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建 AuthHandler 实例
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register 用户注册
// @Summary 用户注册
// @Description 注册新用户
// @Tags 用户
// @Accept json
// @Produce json
// @Param body body service.RegisterRequest true "注册信息"
// @Success 201 {object} response.Response{data=model.User}
// @Router /api/users/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	// 1. 解析请求参数，binding 标签自动校验
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	// 2. 调用服务层处理注册
	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserExists):
			response.UserExists(c)
		case errors.Is(err, service.ErrEmailExists):
			response.EmailExists(c)
		default:
			logger.FromContext(c.Request.Context()).Error("register failed", "error", err)
			response.InternalError(c, "registration failed")
		}
		return
	}

	response.Created(c, user)
}

// Login 用户登录
// @Summary 用户登录
// @Description 使用用户名和密码登录
// @Tags 用户
// @Accept json
// @Produce json
// @Param body body service.LoginRequest true "登录信息"
// @Success 200 {object} response.Response{data=service.LoginResponse}
// @Router /api/users/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.InvalidLogin(c)
		case errors.Is(err, service.ErrUserInactive):
			response.UserInactive(c)
		default:
			logger.FromContext(c.Request.Context()).Error("login failed", "error", err)
			response.InternalError(c, "login failed")
		}
		return
	}

	response.Success(c, result)
}

// Logout 用户登出
// @Summary 用户登出
// @Description 将当前 Token 加入黑名单
// @Tags 用户
// @Security Bearer
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/users/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	// Token 信息由认证中间件设置
	token := c.GetString(middleware.ContextToken)
	expireAt := c.GetTime(middleware.ContextTokenExp)
	if token == "" {
		response.Unauthorized(c, "not authenticated")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), util.HashToken(token), expireAt); err != nil {
		logger.FromContext(c.Request.Context()).Error("logout failed", "error", err)
		response.InternalError(c, "logout failed")
		return
	}

	response.SuccessWithMessage(c, "logged out", nil)
}

// RefreshToken 刷新 Token
// @Summary 刷新 Token
// @Description 使用 Refresh Token 获取新的 Access Token
// @Tags 用户
// @Accept json
// @Produce json
// @Param body body RefreshTokenRequest true "Refresh Token"
// @Success 200 {object} response.Response{data=service.RefreshTokenResponse}
// @Router /api/users/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserInactive):
			response.UserInactive(c)
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUserNotFound):
			response.Unauthorized(c, "refresh token is invalid or expired")
		default:
			logger.FromContext(c.Request.Context()).Error("refresh token failed", "error", err)
			response.InternalError(c, "refresh failed")
		}
		return
	}

	response.Success(c, result)
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
