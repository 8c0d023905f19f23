package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"chatbuddy/internal/middleware"
	"chatbuddy/internal/service"
	"chatbuddy/pkg/logger"
	"chatbuddy/pkg/response"
)

// SessionHandler 会话请求处理器
// 所有接口都只操作当前用户自己的会话
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler 创建 SessionHandler 实例
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// CreateSession 创建会话
// @Summary 创建会话
// @Tags 会话
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body service.CreateSessionRequest false "会话标题"
// @Success 201 {object} response.Response{data=model.Session}
// @Router /api/sessions/ [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	// 请求体可以为空
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	session, err := h.sessionService.CreateSession(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		writeSessionError(c, "create session", err)
		return
	}
	response.Created(c, session)
}

// ListSessions 获取会话列表
// @Summary 获取会话列表
// @Description 获取当前用户的全部会话，最新的在前
// @Tags 会话
// @Security Bearer
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Session}
// @Router /api/sessions/ [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.sessionService.ListSessions(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeSessionError(c, "list sessions", err)
		return
	}
	response.Success(c, sessions)
}

// GetSession 获取会话详情
// @Summary 获取会话详情
// @Tags 会话
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} response.Response{data=model.Session}
// @Router /api/sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.sessionService.GetSession(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		writeSessionError(c, "get session", err)
		return
	}
	response.Success(c, session)
}

// UpdateSession 修改会话标题
// @Summary 修改会话标题
// @Tags 会话
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param body body service.UpdateSessionRequest true "新标题"
// @Success 200 {object} response.Response{data=model.Session}
// @Router /api/sessions/{id} [put]
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	var req service.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	session, err := h.sessionService.RenameSession(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		writeSessionError(c, "rename session", err)
		return
	}
	response.Success(c, session)
}

// EndSession 结束会话
// @Summary 结束会话
// @Tags 会话
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} response.Response{data=model.Session}
// @Router /api/sessions/{id}/end [post]
func (h *SessionHandler) EndSession(c *gin.Context) {
	session, err := h.sessionService.EndSession(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		writeSessionError(c, "end session", err)
		return
	}
	response.Success(c, session)
}

// DeleteSession 删除会话及其消息
// @Summary 删除会话
// @Tags 会话
// @Security Bearer
// @Param id path string true "会话ID"
// @Success 204
// @Router /api/sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.sessionService.DeleteSession(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		writeSessionError(c, "delete session", err)
		return
	}
	response.NoContent(c)
}

// writeSessionError 会话相关错误统一映射
// 会话不存在和属于其他用户都返回 404
func writeSessionError(c *gin.Context, op string, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		response.SessionNotFound(c)
		return
	}
	logger.FromContext(c.Request.Context()).Error(op+" failed", "error", err)
	response.InternalError(c, op+" failed")
}
