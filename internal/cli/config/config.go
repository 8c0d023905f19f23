// Package config 管理 CLI 客户端配置
// 配置保存在 ~/.chatbuddy/config.yaml，登录后的 Token 也写在这里
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultServerURL 默认服务器地址
const DefaultServerURL = "http://localhost:8000"

// Config CLI 配置结构
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Chat   ChatConfig   `mapstructure:"chat"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	URL string `mapstructure:"url"` // HTTP API 地址
}

// AuthConfig 登录凭证
type AuthConfig struct {
	AccessToken  string `mapstructure:"access_token"`  // 访问 Token
	RefreshToken string `mapstructure:"refresh_token"` // 刷新 Token
	Username     string `mapstructure:"username"`
	UserID       string `mapstructure:"user_id"`
}

// ChatConfig 聊天默认参数
type ChatConfig struct {
	Model string `mapstructure:"model"` // 为空时使用服务端默认模型
}

var (
	v   *viper.Viper
	cfg *Config
)

// Init 初始化配置
// 参数:
//   - dir: 配置目录，为空时使用 ~/.chatbuddy
func Init(dir string) error {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("获取用户目录失败: %w", err)
		}
		dir = filepath.Join(home, ".chatbuddy")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	v = viper.New()
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))
	v.SetConfigType("yaml")

	// CHATBUDDY_SERVER_URL 覆盖配置文件中的服务器地址
	v.SetEnvPrefix("chatbuddy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.url", DefaultServerURL)
	v.SetDefault("auth.access_token", "")
	v.SetDefault("auth.refresh_token", "")
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.user_id", "")
	v.SetDefault("chat.model", "")

	if err := v.ReadInConfig(); err != nil {
		// 文件不存在时写入默认配置
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("读取配置失败: %w", err)
			}
		}
		if err := v.WriteConfig(); err != nil {
			return fmt.Errorf("写入默认配置失败: %w", err)
		}
	}

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("解析配置失败: %w", err)
	}
	return nil
}

// Get 获取配置
func Get() *Config {
	return cfg
}

// Path 配置文件路径
func Path() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// SaveAuth 保存登录凭证
func SaveAuth(accessToken, refreshToken, username, userID string) error {
	v.Set("auth.access_token", accessToken)
	v.Set("auth.refresh_token", refreshToken)
	v.Set("auth.username", username)
	v.Set("auth.user_id", userID)
	cfg.Auth = AuthConfig{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Username:     username,
		UserID:       userID,
	}
	return v.WriteConfig()
}

// SaveAccessToken 刷新后只更新访问 Token
func SaveAccessToken(accessToken string) error {
	v.Set("auth.access_token", accessToken)
	cfg.Auth.AccessToken = accessToken
	return v.WriteConfig()
}

// ClearAuth 清除本地凭证
func ClearAuth() error {
	return SaveAuth("", "", "", "")
}

// GetAccessToken 获取访问 Token
func GetAccessToken() string {
	if cfg == nil {
		return ""
	}
	return cfg.Auth.AccessToken
}

// GetRefreshToken 获取刷新 Token
func GetRefreshToken() string {
	if cfg == nil {
		return ""
	}
	return cfg.Auth.RefreshToken
}

// GetServerURL 获取服务器地址
func GetServerURL() string {
	if cfg == nil || cfg.Server.URL == "" {
		return DefaultServerURL
	}
	return strings.TrimRight(cfg.Server.URL, "/")
}

// SetServerURL 设置服务器地址，persist 为 true 时写回配置文件
func SetServerURL(url string, persist bool) error {
	v.Set("server.url", url)
	cfg.Server.URL = url
	if persist {
		return v.WriteConfig()
	}
	return nil
}

// IsLoggedIn 检查是否已登录
func IsLoggedIn() bool {
	return cfg != nil && cfg.Auth.AccessToken != ""
}
