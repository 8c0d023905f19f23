package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"chatbuddy/internal/llm"
	"chatbuddy/internal/model"
	"chatbuddy/internal/repository"
)

// ResponseGenerator 根据对话生成回复，失败时自行返回兜底文本
// *llm.Client 实现了该接口
type ResponseGenerator interface {
	GenerateResponse(ctx context.Context, messages []llm.Message, model string) string
}

// ChatNotifier 一轮对话完成后的通知
// WebSocket Hub 实现该接口，把新消息推送给同一用户的其他连接
type ChatNotifier interface {
	NotifyChatTurn(ctx context.Context, userID string, resp *ChatResponse)
}

// ChatService 聊天编排服务
// 一次请求依次完成: 解析会话 -> 保存用户消息 -> 组装历史 -> 调用大模型 -> 保存回复 -> 返回
type ChatService struct {
	sessionRepo *repository.SessionRepository
	messageRepo *repository.MessageRepository
	assembler   *ConversationAssembler
	generator   ResponseGenerator
	notifier    ChatNotifier
	logger      *slog.Logger
	now         func() time.Time
}

// NewChatService 创建 ChatService 实例
func NewChatService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	generator ResponseGenerator,
) *ChatService {
	return &ChatService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		assembler:   NewConversationAssembler(messageRepo),
		generator:   generator,
		logger:      slog.Default(),
		now:         model.Now,
	}
}

// SetNotifier 设置对话完成通知
// Hub 依赖 ChatService，因此在两者都创建后再注入
func (s *ChatService) SetNotifier(n ChatNotifier) {
	s.notifier = n
}

// SetLogger 指定日志输出
func (s *ChatService) SetLogger(l *slog.Logger) {
	s.logger = l
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	SessionID string `json:"session_id"`                 // 为空时新建会话
	Message   string `json:"message" binding:"required"` // 用户输入
	Model     string `json:"model"`                      // 可选，覆盖默认模型
}

// ChatResponse 一轮对话的结果
type ChatResponse struct {
	SessionID  string         `json:"session_id"`
	Message    *model.Message `json:"message"`     // 已保存的用户消息
	AIResponse *model.Message `json:"ai_response"` // 已保存的回复
}

// SendMessage 处理一轮对话
// 参数:
//   - ctx: 上下文
//   - userID: 当前用户ID
//   - req: 发送请求
//
// 返回:
//   - *ChatResponse: 会话ID以及保存后的两条消息
//   - error: 指定的会话不存在或不属于该用户时返回 ErrSessionNotFound；
//     大模型失败不会返回错误，回复内容为兜底文本
func (s *ChatService) SendMessage(ctx context.Context, userID string, req *SendMessageRequest) (*ChatResponse, error) {
	// 1. 解析会话
	session, err := s.resolveSession(ctx, userID, req.SessionID)
	if err != nil {
		return nil, err
	}

	// 2. 先保存用户消息，生成失败时这一轮也不会丢失
	userMsg := &model.Message{
		SessionID: session.ID,
		Sender:    model.SenderUser,
		Content:   req.Message,
		Timestamp: s.now(),
	}
	if err := s.messageRepo.Create(ctx, userMsg); err != nil {
		return nil, err
	}

	// 用户消息已落库，之后的步骤不再受调用方取消影响，保证这一轮总有回复
	// 大模型调用仍受 llm.request_timeout 约束
	ctx = context.WithoutCancel(ctx)

	// 3. 组装完整历史，包含刚保存的用户消息
	turns, err := s.assembler.Assemble(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	// 4. 调用大模型
	reply := s.generator.GenerateResponse(ctx, turns, strings.TrimSpace(req.Model))

	// 5. 保存回复，时间戳不早于用户消息
	ts := s.now()
	if ts.Before(userMsg.Timestamp) {
		ts = userMsg.Timestamp
	}
	aiMsg := &model.Message{
		SessionID: session.ID,
		Sender:    model.SenderAI,
		Content:   reply,
		Timestamp: ts,
	}
	if err := s.messageRepo.Create(ctx, aiMsg); err != nil {
		return nil, err
	}

	resp := &ChatResponse{
		SessionID:  session.ID,
		Message:    userMsg,
		AIResponse: aiMsg,
	}

	s.logger.Debug("chat turn completed",
		"user_id", userID,
		"session_id", session.ID,
		"turns", len(turns),
		"fallback", reply == llm.FallbackResponse,
	)

	if s.notifier != nil {
		s.notifier.NotifyChatTurn(ctx, userID, resp)
	}
	return resp, nil
}

// resolveSession 查找用户的会话，未指定时新建
func (s *ChatService) resolveSession(ctx context.Context, userID, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		session := &model.Session{UserID: userID}
		if err := s.sessionRepo.Create(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	session, err := s.sessionRepo.GetByIDAndUser(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetMessages 获取会话的全部消息，按时间升序
func (s *ChatService) GetMessages(ctx context.Context, userID, sessionID string) ([]model.Message, error) {
	session, err := s.sessionRepo.GetByIDAndUser(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return s.messageRepo.ListBySession(ctx, session.ID)
}
