package cmd

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"chatbuddy/internal/cli/ui"
	"chatbuddy/pkg/util"
)

var sessionsYesFlag bool

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "管理会话",
}

var sessionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "列出会话，最近开始的在前",
	Args:    cobra.NoArgs,
	RunE:    runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session_id>",
	Short: "显示会话的全部消息",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <session_id> <title>",
	Short: "重命名会话",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSessionsRename,
}

var sessionsEndCmd = &cobra.Command{
	Use:   "end <session_id>",
	Short: "结束会话",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsEnd,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:     "delete <session_id>",
	Aliases: []string{"rm"},
	Short:   "删除会话及其全部消息",
	Args:    cobra.ExactArgs(1),
	RunE:    runSessionsDelete,
}

func init() {
	sessionsDeleteCmd.Flags().BoolVarP(&sessionsYesFlag, "yes", "y", false, "跳过确认")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsRenameCmd, sessionsEndCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	client, err := authedClient()
	if err != nil {
		return err
	}

	sessions, err := client.ListSessions(cmd.Context())
	if err != nil {
		return explainError(err)
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "还没有会话，运行 'chatbuddy chat' 开始第一次对话")
		return nil
	}
	for i := range sessions {
		ui.RenderSession(out, &sessions[i], util.TruncateString(sessions[i].Title, 40))
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	client, err := authedClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	session, err := client.GetSession(ctx, args[0])
	if err != nil {
		return explainError(err)
	}
	messages, err := client.Messages(ctx, session.ID)
	if err != nil {
		return explainError(err)
	}

	out := cmd.OutOrStdout()
	ui.RenderSession(out, session, session.Title)
	fmt.Fprintln(out)
	for i := range messages {
		ui.RenderMessage(out, &messages[i])
	}
	return nil
}

func runSessionsRename(cmd *cobra.Command, args []string) error {
	client, err := authedClient()
	if err != nil {
		return err
	}

	title := strings.Join(args[1:], " ")
	session, err := client.RenameSession(cmd.Context(), args[0], title)
	if err != nil {
		return explainError(err)
	}
	ui.Success(cmd.OutOrStdout(), "已重命名为 %s", ui.Title(session.Title))
	return nil
}

func runSessionsEnd(cmd *cobra.Command, args []string) error {
	client, err := authedClient()
	if err != nil {
		return err
	}

	if _, err := client.EndSession(cmd.Context(), args[0]); err != nil {
		return explainError(err)
	}
	ui.Success(cmd.OutOrStdout(), "会话已结束")
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	client, err := authedClient()
	if err != nil {
		return err
	}

	if !sessionsYesFlag {
		confirm := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("确定删除会话 %s 及其全部消息吗？", args[0]),
			Default: false,
		}
		if err := survey.AskOne(prompt, &confirm); err != nil {
			return err
		}
		if !confirm {
			fmt.Fprintln(cmd.OutOrStdout(), "已取消")
			return nil
		}
	}

	if err := client.DeleteSession(cmd.Context(), args[0]); err != nil {
		return explainError(err)
	}
	ui.Success(cmd.OutOrStdout(), "会话已删除")
	return nil
}
