package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatbuddy/internal/cli/config"
	"chatbuddy/internal/cli/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "显示当前状态",
	Long: `显示当前登录状态和配置信息。

包括：
- 服务器地址
- 配置文件位置
- 登录用户（会向服务端确认 Token 是否仍然有效）`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, ui.Title("ChatBuddy 状态"))
	fmt.Fprintf(out, "  服务器:   %s\n", config.GetServerURL())
	fmt.Fprintf(out, "  配置文件: %s\n", ui.Muted(config.Path()))

	if !config.IsLoggedIn() {
		fmt.Fprintln(out, "  登录状态: ✗ 未登录")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "  请运行 'chatbuddy login' 完成登录")
		return nil
	}

	user, err := newClient().Me(cmd.Context())
	if err != nil {
		fmt.Fprintf(out, "  登录状态: ✗ %v\n", explainError(err))
		return nil
	}

	fmt.Fprintf(out, "  登录状态: ✓ 已登录\n")
	fmt.Fprintf(out, "  用户:     %s %s\n", user.Username, ui.ID(user.ID))
	fmt.Fprintf(out, "  邮箱:     %s\n", user.Email)
	return nil
}
