package llm

import (
	"context"
	"fmt"

	"chatbuddy/internal/config"
)

// 支持的提供方
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderDashScope = "dashscope"
)

// NewProvider 按配置创建大模型提供方
// 参数:
//   - ctx: 用于初始化需要建立连接的 SDK 客户端
//   - cfg: 大模型配置
//
// 返回:
//   - Provider: 提供方实例
//   - error: 未知提供方或初始化失败
func NewProvider(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL), nil
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.APIKey)
	case ProviderDashScope:
		return NewDashScopeProvider(cfg.APIKey, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}
