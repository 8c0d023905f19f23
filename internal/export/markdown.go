package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"chatbuddy/internal/model"
)

// MarkdownExporter 导出为便于阅读的 Markdown
type MarkdownExporter struct{}

// Export 写出 Markdown
func (e *MarkdownExporter) Export(t *Transcript, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "**Session:** %s  \n", t.SessionID)
	fmt.Fprintf(&b, "**Started:** %s  \n", t.StartTime.UTC().Format(time.RFC3339))
	if t.EndTime != nil {
		fmt.Fprintf(&b, "**Ended:** %s  \n", t.EndTime.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "**Messages:** %d\n\n", len(t.Messages))

	for i, msg := range t.Messages {
		fmt.Fprintf(&b, "---\n\n**%s** (%s)\n\n%s\n\n",
			senderLabel(msg.Sender), msg.Timestamp.UTC().Format(time.RFC3339), escapeMarkdown(msg.Content))
		if i == len(t.Messages)-1 {
			b.WriteString("---\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Extension 文件扩展名
func (e *MarkdownExporter) Extension() string {
	return "md"
}

func senderLabel(sender string) string {
	switch sender {
	case model.SenderUser:
		return "You"
	case model.SenderAI:
		return "ChatBuddy"
	default:
		return sender
	}
}

// escapeMarkdown 转义代码块以外的加粗标记，代码块原样保留
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCodeBlock := false
	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		line = strings.ReplaceAll(line, "**", `\*\*`)
		lines[i] = strings.ReplaceAll(line, "__", `\_\_`)
	}
	return strings.Join(lines, "\n")
}
