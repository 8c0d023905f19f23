package export

import (
	"encoding/json"
	"io"
)

// JSONExporter 导出为缩进的 JSON
type JSONExporter struct{}

// Export 写出 JSON
func (e *JSONExporter) Export(t *Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// Extension 文件扩展名
func (e *JSONExporter) Extension() string {
	return "json"
}
