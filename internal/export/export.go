// Package export serializes normalized conversations into portable
// formats: json, jsonl, yaml, and markdown.
package export

import (
	"fmt"
	"io"

	"github.com/hollis/convoview/internal/model"
)

// Document is a fully decoded conversation prepared for export.
type Document struct {
	Source   string          `json:"source" yaml:"source"`
	Project  string          `json:"project" yaml:"project"`
	Session  string          `json:"session" yaml:"session"`
	Title    string          `json:"title,omitempty" yaml:"title,omitempty"`
	Messages []model.Message `json:"messages" yaml:"messages"`
}

// Exporter writes a document in one output format.
type Exporter interface {
	Export(doc *Document, w io.Writer) error
	Extension() string
}

// NewExporter creates an exporter for the named format.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, jsonl, yaml, md)", format)
	}
}
