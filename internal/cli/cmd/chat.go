package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"chatbuddy/internal/cli/api"
	"chatbuddy/internal/cli/config"
	"chatbuddy/internal/cli/ui"
)

var (
	chatSessionFlag string
	chatModelFlag   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "开始对话",
	Long: `进入交互式对话。每输入一行发送一条消息，回复会显示在下方。

可用指令：
  /new      开始新的会话
  /session  显示当前会话 ID
  /exit     退出

标准输入不是终端时（例如管道），逐行发送输入并输出回复。`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionFlag, "session", "", "继续已有会话")
	chatCmd.Flags().StringVarP(&chatModelFlag, "model", "m", "", "覆盖服务端默认模型")

	rootCmd.AddCommand(chatCmd)
}

// chatSender 发送一轮对话
type chatSender interface {
	SendMessage(ctx context.Context, sessionID, message, modelName string) (*api.ChatResponse, error)
}

func runChat(cmd *cobra.Command, args []string) error {
	client, err := authedClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	modelName := chatModelFlag
	if modelName == "" {
		modelName = config.Get().Chat.Model
	}

	sessionID := chatSessionFlag
	if sessionID != "" {
		history, err := client.Messages(ctx, sessionID)
		if err != nil {
			return explainError(err)
		}
		for i := range history {
			ui.RenderMessage(out, &history[i])
		}
	}

	if interactive {
		fmt.Fprintln(out, ui.Muted("输入消息开始对话，/exit 退出"))
	}

	_, err = chatLoop(ctx, client, cmd.InOrStdin(), out, interactive, sessionID, modelName)
	return err
}

// chatLoop 读取输入并逐行发送，返回最后使用的会话 ID
// 单条消息失败不会中断对话，只有上下文取消才会退出
func chatLoop(ctx context.Context, sender chatSender, in io.Reader, out io.Writer, interactive bool, sessionID, modelName string) (string, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if interactive {
			fmt.Fprint(out, ui.Prompt())
		}
		if !scanner.Scan() {
			return sessionID, scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return sessionID, nil
		case "/new":
			sessionID = ""
			fmt.Fprintln(out, ui.Muted("已开始新的会话"))
			continue
		case "/session":
			if sessionID == "" {
				fmt.Fprintln(out, ui.Muted("尚未创建会话"))
			} else {
				fmt.Fprintln(out, ui.ID(sessionID))
			}
			continue
		}

		resp, err := sender.SendMessage(ctx, sessionID, line, modelName)
		if err != nil {
			if ctx.Err() != nil {
				return sessionID, ctx.Err()
			}
			ui.Error(out, "%v", explainError(err))
			if api.IsNotFound(err) {
				sessionID = ""
			}
			continue
		}

		sessionID = resp.SessionID
		if resp.AIResponse != nil {
			ui.RenderMessage(out, resp.AIResponse)
		}
	}
}
