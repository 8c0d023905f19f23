package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chatbuddy/internal/cli/ui"
	"chatbuddy/internal/export"
)

var (
	exportFormatFlag string
	exportOutputFlag string
)

var exportCmd = &cobra.Command{
	Use:   "export <session_id>",
	Short: "导出会话记录",
	Long: `将会话及其全部消息导出为 JSON、YAML 或 Markdown。

未指定 --output 时输出到标准输出。`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormatFlag, "format", "f", export.FormatMarkdown, "导出格式: json / yaml / markdown")
	exportCmd.Flags().StringVarP(&exportOutputFlag, "output", "o", "", "输出文件路径")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	exporter, err := export.NewExporter(exportFormatFlag)
	if err != nil {
		return err
	}

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
	transcript := export.NewTranscript(session, messages, time.Now().UTC())

	if exportOutputFlag == "" {
		return exporter.Export(transcript, cmd.OutOrStdout())
	}

	if err := writeExport(exportOutputFlag, exporter, transcript); err != nil {
		return err
	}
	ui.Success(cmd.ErrOrStderr(), "已导出 %d 条消息到 %s", len(transcript.Messages), exportOutputFlag)
	return nil
}

func writeExport(path string, exporter export.Exporter, t *export.Transcript) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	return exporter.Export(t, f)
}
