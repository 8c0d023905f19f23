package export

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLExporter 导出为 YAML
type YAMLExporter struct{}

// Export 写出 YAML
func (e *YAMLExporter) Export(t *Transcript, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// Extension 文件扩展名
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
