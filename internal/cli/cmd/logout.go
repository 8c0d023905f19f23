package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatbuddy/internal/cli/api"
	"chatbuddy/internal/cli/config"
	"chatbuddy/internal/cli/ui"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "登出并清除本地凭证",
	Long: `登出当前账号：服务端吊销当前 Token，本地清除保存的凭证。

服务器不可达时仍会清除本地凭证。`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !config.IsLoggedIn() {
		fmt.Fprintln(out, "当前未登录")
		return nil
	}

	// Token 已过期时服务端返回 401，本地照常清理
	if err := newClient().Logout(cmd.Context()); err != nil && !api.IsUnauthorized(err) {
		ui.Error(cmd.ErrOrStderr(), "服务端登出失败: %v", err)
	}

	if err := config.ClearAuth(); err != nil {
		return fmt.Errorf("清除凭证失败: %w", err)
	}

	ui.Success(out, "已登出并清除本地凭证")
	return nil
}
