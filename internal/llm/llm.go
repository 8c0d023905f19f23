// Package llm 封装对外部大模型服务的调用
// Provider 负责与具体厂商通信，Client 在其之上统一采样参数并吸收全部错误
package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// 对话角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FallbackResponse 大模型调用失败时返回给用户的固定文本
const FallbackResponse = "I'm sorry, I couldn't generate a response at this time. Please try again later."

// 固定采样参数
const (
	DefaultTemperature      float32 = 0.7
	DefaultTopP             float32 = 1.0
	DefaultMaxTokens                = 800
	DefaultFrequencyPenalty float32 = 0
	DefaultPresencePenalty  float32 = 0
)

// Message 发送给大模型的一轮对话
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest 一次补全请求
type CompletionRequest struct {
	Model            string
	Messages         []Message
	Temperature      float32
	TopP             float32
	MaxTokens        int
	FrequencyPenalty float32
	PresencePenalty  float32
}

// Provider 大模型提供方
type Provider interface {
	// Name 提供方标识，用于日志
	Name() string
	// ChatCompletion 返回模型生成的文本
	ChatCompletion(ctx context.Context, req *CompletionRequest) (string, error)
}

// Client 大模型调用入口
// GenerateResponse 永远返回可展示的文本：失败时记录日志并返回 FallbackResponse
type Client struct {
	provider     Provider
	defaultModel string
	timeout      time.Duration
	logger       *slog.Logger
}

// Option Client 可选项
type Option func(*Client)

// WithTimeout 为单次调用设置超时，0 表示只受调用方 context 约束
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger 指定日志输出
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient 创建 Client
// 参数:
//   - provider: 大模型提供方
//   - defaultModel: 请求未指定模型时使用的模型
func NewClient(provider Provider, defaultModel string, opts ...Option) *Client {
	c := &Client{
		provider:     provider,
		defaultModel: defaultModel,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateResponse 根据完整对话生成回复
// 参数:
//   - ctx: 上下文，取消时调用立即结束并返回兜底文本
//   - messages: 按时间排列的对话，首条为系统提示
//   - model: 覆盖默认模型，为空时使用默认模型
//
// 返回:
//   - string: 去除首尾空白的回复文本，或 FallbackResponse
func (c *Client) GenerateResponse(ctx context.Context, messages []Message, model string) string {
	if model == "" {
		model = c.defaultModel
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &CompletionRequest{
		Model:            model,
		Messages:         messages,
		Temperature:      DefaultTemperature,
		TopP:             DefaultTopP,
		MaxTokens:        DefaultMaxTokens,
		FrequencyPenalty: DefaultFrequencyPenalty,
		PresencePenalty:  DefaultPresencePenalty,
	}

	start := time.Now()
	text, err := c.provider.ChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("llm request failed, using fallback response",
			"provider", c.provider.Name(),
			"model", model,
			"turns", len(messages),
			"latency", time.Since(start),
			"error", err,
		)
		return FallbackResponse
	}

	text = strings.TrimSpace(text)
	if text == "" {
		c.logger.Warn("llm returned empty content, using fallback response",
			"provider", c.provider.Name(),
			"model", model,
		)
		return FallbackResponse
	}

	c.logger.Debug("llm request completed",
		"provider", c.provider.Name(),
		"model", model,
		"turns", len(messages),
		"latency", time.Since(start),
	)
	return text
}
