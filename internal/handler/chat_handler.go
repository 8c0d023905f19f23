package handler

import (
	"github.com/gin-gonic/gin"

	"chatbuddy/internal/middleware"
	"chatbuddy/internal/service"
	"chatbuddy/pkg/response"
)

// ChatHandler 聊天请求处理器
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// SendMessage 发送消息并获取回复
// @Summary 发送消息
// @Description 未指定 session_id 时新建会话；大模型不可用时回复为固定的致歉文本
// @Tags 聊天
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body service.SendMessageRequest true "消息"
// @Success 200 {object} response.Response{data=service.ChatResponse}
// @Router /api/chat/message [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		writeSessionError(c, "send message", err)
		return
	}
	response.Success(c, result)
}

// GetMessages 获取会话消息
// @Summary 获取会话消息
// @Description 按时间升序返回会话中的全部消息
// @Tags 聊天
// @Security Bearer
// @Produce json
// @Param session_id path string true "会话ID"
// @Success 200 {object} response.Response{data=[]model.Message}
// @Router /api/chat/messages/{session_id} [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	messages, err := h.chatService.GetMessages(c.Request.Context(), middleware.GetUserID(c), c.Param("session_id"))
	if err != nil {
		writeSessionError(c, "get messages", err)
		return
	}
	response.Success(c, messages)
}
