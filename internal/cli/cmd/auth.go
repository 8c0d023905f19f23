package cmd

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"chatbuddy/internal/cli/config"
	"chatbuddy/internal/cli/ui"
)

var (
	usernameFlag string
	passwordFlag string
	emailFlag    string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "注册新账号",
	Long: `注册新的 ChatBuddy 账号，注册成功后自动登录。

未通过参数提供的信息会以交互方式询问。`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "登录",
	Long: `使用用户名和密码登录，凭证保存在 ~/.chatbuddy/config.yaml。

使用 --server 指定的服务器地址会在登录成功后一并保存。`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVarP(&usernameFlag, "username", "u", "", "用户名")
		c.Flags().StringVarP(&passwordFlag, "password", "p", "", "密码（建议省略，以隐藏方式输入）")
	}
	registerCmd.Flags().StringVarP(&emailFlag, "email", "e", "", "邮箱")

	rootCmd.AddCommand(registerCmd, loginCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	username, err := askIfEmpty(usernameFlag, &survey.Input{Message: "用户名:"})
	if err != nil {
		return err
	}
	email, err := askIfEmpty(emailFlag, &survey.Input{Message: "邮箱:"})
	if err != nil {
		return err
	}
	password, err := askIfEmpty(passwordFlag, &survey.Password{Message: "密码 (至少 6 位):"})
	if err != nil {
		return err
	}
	if passwordFlag == "" {
		var confirm string
		if err := survey.AskOne(&survey.Password{Message: "确认密码:"}, &confirm); err != nil {
			return err
		}
		if confirm != password {
			return fmt.Errorf("两次输入的密码不一致")
		}
	}

	client := newClient()
	user, err := client.Register(cmd.Context(), username, email, password)
	if err != nil {
		return fmt.Errorf("注册失败: %w", err)
	}
	ui.Success(cmd.OutOrStdout(), "注册成功: %s %s", user.Username, ui.ID(user.ID))

	return login(cmd, username, password)
}

func runLogin(cmd *cobra.Command, args []string) error {
	username, err := askIfEmpty(usernameFlag, &survey.Input{Message: "用户名:"})
	if err != nil {
		return err
	}
	password, err := askIfEmpty(passwordFlag, &survey.Password{Message: "密码:"})
	if err != nil {
		return err
	}
	return login(cmd, username, password)
}

func login(cmd *cobra.Command, username, password string) error {
	client := newClient()
	resp, err := client.Login(cmd.Context(), username, password)
	if err != nil {
		return fmt.Errorf("登录失败: %w", err)
	}

	userID := ""
	if resp.User != nil {
		userID = resp.User.ID
		username = resp.User.Username
	}
	if serverFlag != "" {
		if err := config.SetServerURL(serverFlag, true); err != nil {
			return fmt.Errorf("保存服务器地址失败: %w", err)
		}
	}
	if err := config.SaveAuth(resp.AccessToken, resp.RefreshToken, username, userID); err != nil {
		return fmt.Errorf("保存登录信息失败: %w", err)
	}

	ui.Success(cmd.OutOrStdout(), "已登录为 %s", ui.Title(username))
	return nil
}

// askIfEmpty 参数已提供时直接返回，否则交互询问
func askIfEmpty(value string, prompt survey.Prompt) (string, error) {
	if value = strings.TrimSpace(value); value != "" {
		return value, nil
	}
	var answer string
	if err := survey.AskOne(prompt, &answer, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}
