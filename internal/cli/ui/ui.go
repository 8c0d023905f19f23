// Package ui 定义 CLI 的终端输出样式
package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"chatbuddy/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	aiStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("135")).
		Bold(true)

	contentStyle = lipgloss.NewStyle().
			PaddingLeft(2)
)

// Title 标题
func Title(s string) string { return titleStyle.Render(s) }

// Muted 次要信息
func Muted(s string) string { return mutedStyle.Render(s) }

// ID 标识符
func ID(s string) string { return idStyle.Render(s) }

// Success 输出成功提示
func Success(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, successStyle.Render("✓ ")+fmt.Sprintf(format, args...))
}

// Error 输出错误提示
func Error(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, errorStyle.Render("✗ ")+fmt.Sprintf(format, args...))
}

// Prompt 聊天输入提示符
func Prompt() string { return userStyle.Render("You › ") }

// SenderLabel 发送方标签
func SenderLabel(sender string) string {
	switch sender {
	case model.SenderUser:
		return userStyle.Render("You")
	case model.SenderAI:
		return aiStyle.Render("ChatBuddy")
	default:
		return mutedStyle.Render(sender)
	}
}

// RenderMessage 渲染一条消息
func RenderMessage(w io.Writer, m *model.Message) {
	fmt.Fprintf(w, "%s %s\n%s\n\n",
		SenderLabel(m.Sender),
		mutedStyle.Render(m.Timestamp.Local().Format(time.DateTime)),
		contentStyle.Render(m.Content))
}

// RenderSession 渲染会话摘要行
func RenderSession(w io.Writer, s *model.Session, title string) {
	state := "active"
	if s.IsEnded() {
		state = "ended"
	}
	fmt.Fprintf(w, "%s  %s  %s  %s\n",
		idStyle.Render(s.ID),
		titleStyle.Render(title),
		mutedStyle.Render(s.StartTime.Local().Format(time.DateTime)),
		mutedStyle.Render(state))
}
