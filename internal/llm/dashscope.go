package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DashScopeEndpoint 阿里云 DashScope 文本生成接口
const DashScopeEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

// DashScopeProvider 通过阿里云 DashScope（通义千问）生成回复
type DashScopeProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewDashScopeProvider 创建 DashScopeProvider
// endpoint 为空时使用官方地址
func NewDashScopeProvider(apiKey, endpoint string) *DashScopeProvider {
	if endpoint == "" {
		endpoint = DashScopeEndpoint
	}
	return &DashScopeProvider{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

// dashScopeRequest DashScope 请求结构
type dashScopeRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []Message `json:"messages"`
	} `json:"input"`
	Parameters struct {
		ResultFormat string  `json:"result_format"` // "message"
		Temperature  float32 `json:"temperature"`
		TopP         float32 `json:"top_p"`
		MaxTokens    int     `json:"max_tokens"`
	} `json:"parameters"`
}

// dashScopeResponse DashScope 响应结构
type dashScopeResponse struct {
	Output struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Name 实现 Provider
func (p *DashScopeProvider) Name() string { return ProviderDashScope }

// ChatCompletion 实现 Provider
func (p *DashScopeProvider) ChatCompletion(ctx context.Context, req *CompletionRequest) (string, error) {
	var body dashScopeRequest
	body.Model = req.Model
	body.Input.Messages = req.Messages
	body.Parameters.ResultFormat = "message"
	body.Parameters.Temperature = req.Temperature
	body.Parameters.TopP = req.TopP
	body.Parameters.MaxTokens = req.MaxTokens

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call dashscope: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read dashscope response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dashscope returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var dashResp dashScopeResponse
	if err := json.Unmarshal(bodyBytes, &dashResp); err != nil {
		return "", fmt.Errorf("failed to parse dashscope response: %w", err)
	}
	if dashResp.Code != "" {
		return "", fmt.Errorf("dashscope error: %s - %s", dashResp.Code, dashResp.Message)
	}
	if len(dashResp.Output.Choices) == 0 {
		return "", errors.New("dashscope returned no content")
	}

	return dashResp.Output.Choices[0].Message.Content, nil
}
