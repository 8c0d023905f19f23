package service

import (
	"context"

	"chatbuddy/internal/llm"
	"chatbuddy/internal/model"
	"chatbuddy/internal/repository"
)

// SystemPrompt 每次对话首条固定的系统提示
const SystemPrompt = "You are a helpful assistant in the ChatBuddy app. Provide concise and accurate responses."

// ConversationAssembler 把会话中的历史消息组装成发给大模型的对话
// 历史不做截断，会话越长请求越大
type ConversationAssembler struct {
	messageRepo *repository.MessageRepository
}

// NewConversationAssembler 创建 ConversationAssembler 实例
func NewConversationAssembler(messageRepo *repository.MessageRepository) *ConversationAssembler {
	return &ConversationAssembler{messageRepo: messageRepo}
}

// Assemble 读取会话的全部消息并转换为对话轮次
// 参数:
//   - ctx: 上下文
//   - sessionID: 会话ID，调用方负责校验归属
//
// 返回:
//   - []llm.Message: 以系统提示开头、按时间升序排列的对话
//   - error: 数据库错误
func (a *ConversationAssembler) Assemble(ctx context.Context, sessionID string) ([]llm.Message, error) {
	messages, err := a.messageRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return BuildPrompt(messages), nil
}

// BuildPrompt 将已排序的消息映射为对话轮次
// user -> user，ai -> assistant，其他发送方原样透传
func BuildPrompt(messages []model.Message) []llm.Message {
	turns := make([]llm.Message, 0, len(messages)+1)
	turns = append(turns, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt})
	for _, m := range messages {
		turns = append(turns, llm.Message{Role: roleForSender(m.Sender), Content: m.Content})
	}
	return turns
}

func roleForSender(sender string) string {
	switch sender {
	case model.SenderUser:
		return llm.RoleUser
	case model.SenderAI:
		return llm.RoleAssistant
	default:
		return sender
	}
}
