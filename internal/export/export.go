// Package export 将会话记录导出为 JSON / YAML / Markdown
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"chatbuddy/internal/model"
)

// 支持的导出格式
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

// Transcript 导出用的会话记录
type Transcript struct {
	SessionID  string              `json:"session_id" yaml:"session_id"`
	Title      string              `json:"title" yaml:"title"`
	StartTime  time.Time           `json:"start_time" yaml:"start_time"`
	EndTime    *time.Time          `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	ExportedAt time.Time           `json:"exported_at" yaml:"exported_at"`
	Messages   []TranscriptMessage `json:"messages" yaml:"messages"`
}

// TranscriptMessage 导出的单条消息
type TranscriptMessage struct {
	Sender    string    `json:"sender" yaml:"sender"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// NewTranscript 由会话和消息构建导出记录，消息顺序保持不变
func NewTranscript(session *model.Session, messages []model.Message, exportedAt time.Time) *Transcript {
	t := &Transcript{
		SessionID:  session.ID,
		Title:      session.Title,
		StartTime:  session.StartTime,
		EndTime:    session.EndTime,
		ExportedAt: exportedAt,
		Messages:   make([]TranscriptMessage, 0, len(messages)),
	}
	for _, m := range messages {
		t.Messages = append(t.Messages, TranscriptMessage{
			Sender:    m.Sender,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return t
}

// Exporter 导出器接口
type Exporter interface {
	Export(t *Transcript, w io.Writer) error
	Extension() string
}

// NewExporter 根据格式名创建导出器
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return &JSONExporter{}, nil
	case FormatYAML, "yml":
		return &YAMLExporter{}, nil
	case FormatMarkdown, "md":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, yaml, markdown)", format)
	}
}
