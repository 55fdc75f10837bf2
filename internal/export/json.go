package export

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONExporter writes the whole document as pretty-printed JSON.
type JSONExporter struct{}

func (e *JSONExporter) Export(doc *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func (e *JSONExporter) Extension() string { return "json" }

// JSONLExporter writes one message per line, omitting the envelope.
type JSONLExporter struct{}

func (e *JSONLExporter) Export(doc *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, msg := range doc.Messages {
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("encode message %d: %w", msg.Seq, err)
		}
	}
	return nil
}

func (e *JSONLExporter) Extension() string { return "jsonl" }
