// Package cmd 实现 chatbuddy 命令行客户端
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chatbuddy/internal/cli/api"
	"chatbuddy/internal/cli/config"
	"chatbuddy/internal/cli/ui"
)

var rootCmd = &cobra.Command{
	Use:   "chatbuddy",
	Short: "ChatBuddy - 终端里的 AI 聊天助手",
	Long: `ChatBuddy CLI 客户端

在终端中与 ChatBuddy 服务端对话，管理会话并导出聊天记录。

首次使用请先运行 'chatbuddy register' 或 'chatbuddy login'。`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	serverFlag    string
	configDirFlag string
)

// errNotLoggedIn 未登录
var errNotLoggedIn = errors.New("当前未登录，请先运行 'chatbuddy login'")

// Execute 执行根命令，Ctrl+C 会取消正在进行的请求
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.Error(os.Stderr, "%v", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "服务器地址 (默认: "+config.DefaultServerURL+")")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "配置目录 (默认: ~/.chatbuddy)")
}

func initConfig() {
	if err := config.Init(configDirFlag); err != nil {
		fmt.Fprintf(os.Stderr, "初始化配置失败: %v\n", err)
		os.Exit(1)
	}

	// 指定了服务器地址时只对本次命令生效，login 成功后才会写回配置
	if serverFlag != "" {
		config.SetServerURL(serverFlag, false)
	}
}

// newClient 按当前配置创建 API 客户端，刷新后的 Token 自动写回配置文件
func newClient() *api.Client {
	client := api.NewClient(config.GetServerURL())
	client.SetTokens(config.GetAccessToken(), config.GetRefreshToken())
	client.OnTokenRefresh(config.SaveAccessToken)
	return client
}

// authedClient 要求已登录
func authedClient() (*api.Client, error) {
	if !config.IsLoggedIn() {
		return nil, errNotLoggedIn
	}
	return newClient(), nil
}

// explainError 把常见的 API 错误转成更友好的提示
func explainError(err error) error {
	switch {
	case api.IsUnauthorized(err):
		return fmt.Errorf("登录已失效，请重新运行 'chatbuddy login' (%w)", err)
	case api.IsNotFound(err):
		return fmt.Errorf("会话不存在或不属于当前用户 (%w)", err)
	default:
		return err
	}
}
