// Package api 封装 CLI 与 ChatBuddy 服务端的 HTTP API 交互
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"chatbuddy/internal/model"
)

// 与服务端保持一致的业务状态码
const (
	CodeSuccess         = 0
	CodeUnauthorized    = 1001
	CodeSessionNotFound = 1301
)

// APIResponse 通用响应
type APIResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError 服务端返回的业务错误
type APIError struct {
	StatusCode int    // HTTP 状态码
	Code       int    // 业务状态码
	Message    string // 服务端提示
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API 错误 (%d/%d): %s", e.StatusCode, e.Code, e.Message)
}

// IsUnauthorized 是否为鉴权失败
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound 是否为资源不存在
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client API 客户端
// baseURL: 例如 http://localhost:8000
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	onRefresh    func(accessToken string) error
}

// NewClient 创建 API 客户端
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// 大模型调用可能较慢，超时放宽到 2 分钟
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// SetTokens 设置登录凭证
// refreshToken 非空时，请求遇到 401 会自动刷新一次 Access Token 并重试
func (c *Client) SetTokens(accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
	c.refreshToken = refreshToken
}

// OnTokenRefresh 注册刷新成功后的回调，用于持久化新 Token
func (c *Client) OnTokenRefresh(fn func(accessToken string) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = fn
}

// AccessToken 当前使用的 Access Token
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// --- 用户 ---

// LoginResponse 登录结果
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *model.User `json:"user"`
}

// RefreshResponse 刷新结果
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Register 注册新用户
func (c *Client) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	body := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}
	var user model.User
	if err := c.call(ctx, http.MethodPost, "/api/users/register", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login 使用用户名密码登录，成功后客户端自动持有新 Token
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}
	var result LoginResponse
	if err := c.call(ctx, http.MethodPost, "/api/users/login", body, &result); err != nil {
		return nil, err
	}
	c.SetTokens(result.AccessToken, result.RefreshToken)
	return &result, nil
}

// Refresh 使用 Refresh Token 换取新的 Access Token
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var result RefreshResponse
	if err := c.send(ctx, http.MethodPost, "/api/users/refresh", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout 登出，服务端将当前 Token 加入黑名单
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/users/logout", nil, nil)
}

// Me 获取当前用户信息
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.call(ctx, http.MethodGet, "/api/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// --- 会话 ---

// ListSessions 列出当前用户的会话，最近开始的在前
func (c *Client) ListSessions(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	if err := c.call(ctx, http.MethodGet, "/api/sessions/", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateSession 创建会话，title 为空时使用默认标题
func (c *Client) CreateSession(ctx context.Context, title string) (*model.Session, error) {
	var session model.Session
	if err := c.call(ctx, http.MethodPost, "/api/sessions/", map[string]string{"title": title}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession 获取会话详情
func (c *Client) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	if err := c.call(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RenameSession 重命名会话
func (c *Client) RenameSession(ctx context.Context, sessionID, title string) (*model.Session, error) {
	var session model.Session
	path := "/api/sessions/" + url.PathEscape(sessionID)
	if err := c.call(ctx, http.MethodPut, path, map[string]string{"title": title}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// EndSession 结束会话
func (c *Client) EndSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/end"
	if err := c.call(ctx, http.MethodPost, path, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession 删除会话及其消息
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.call(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// --- 聊天 ---

// ChatResponse 一轮对话的结果
type ChatResponse struct {
	SessionID  string         `json:"session_id"`
	Message    *model.Message `json:"message"`
	AIResponse *model.Message `json:"ai_response"`
}

// SendMessage 发送消息
// 参数:
//   - sessionID: 为空时服务端新建会话
//   - message: 用户输入
//   - modelName: 可选，覆盖服务端默认模型
func (c *Client) SendMessage(ctx context.Context, sessionID, message, modelName string) (*ChatResponse, error) {
	body := map[string]string{
		"session_id": sessionID,
		"message":    message,
		"model":      modelName,
	}
	var result ChatResponse
	if err := c.call(ctx, http.MethodPost, "/api/chat/message", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Messages 获取会话的全部消息，按时间升序
func (c *Client) Messages(ctx context.Context, sessionID string) ([]model.Message, error) {
	var messages []model.Message
	if err := c.call(ctx, http.MethodGet, "/api/chat/messages/"+url.PathEscape(sessionID), nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// --- 通用请求封装 ---

// call 发送需要鉴权的请求，401 时尝试刷新 Token 后重试一次
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	err := c.send(ctx, method, path, body, out)
	if err == nil || !IsUnauthorized(err) {
		return err
	}

	c.mu.Lock()
	refreshToken := c.refreshToken
	c.mu.Unlock()
	if refreshToken == "" {
		return err
	}

	refreshed, refreshErr := c.Refresh(ctx, refreshToken)
	if refreshErr != nil {
		return err
	}

	c.mu.Lock()
	c.accessToken = refreshed.AccessToken
	onRefresh := c.onRefresh
	c.mu.Unlock()
	if onRefresh != nil {
		if err := onRefresh(refreshed.AccessToken); err != nil {
			return fmt.Errorf("保存新 Token 失败: %w", err)
		}
	}

	return c.send(ctx, method, path, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil || resp == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("解析响应数据失败: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*APIResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	if apiResp.Code != CodeSuccess || resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       apiResp.Code,
			Message:    apiResp.Message,
		}
	}

	return &apiResp, nil
}
