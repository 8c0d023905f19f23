package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider 通过 Google Gemini 生成回复
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider 创建 GeminiProvider
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Name 实现 Provider
func (p *GeminiProvider) Name() string { return ProviderGemini }

// Close 释放底层连接
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// ChatCompletion 实现 Provider
// 系统提示放入 SystemInstruction，最后一条用户消息之前的对话作为聊天历史
func (p *GeminiProvider) ChatCompletion(ctx context.Context, req *CompletionRequest) (string, error) {
	system, history, last, err := splitForGemini(req.Messages)
	if err != nil {
		return "", err
	}

	model := p.client.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	model.SetTopP(req.TopP)
	model.SetMaxOutputTokens(int32(req.MaxTokens))
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", err
	}
	return geminiText(resp)
}

// splitForGemini 将对话拆分为系统提示、历史和最后一条用户输入
// Gemini 的角色只有 user 和 model
func splitForGemini(messages []Message) (string, []*genai.Content, string, error) {
	var systemParts []string
	var turns []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 {
		return "", nil, "", errors.New("gemini: no user message to send")
	}

	last := turns[len(turns)-1]
	history := make([]*genai.Content, 0, len(turns)-1)
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return strings.Join(systemParts, "\n"), history, last.Content, nil
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}
