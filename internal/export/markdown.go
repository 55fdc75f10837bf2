package export

import (
	"fmt"
	"io"

	"github.com/hollis/convoview/internal/model"
)

// MarkdownExporter renders the conversation as a readable transcript.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(doc *Document, w io.Writer) error {
	title := doc.Title
	if title == "" {
		title = fmt.Sprintf("Session %s", doc.Session)
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)
	_, _ = fmt.Fprintf(w, "**Source:** %s  \n", doc.Source)
	_, _ = fmt.Fprintf(w, "**Project:** %s  \n", doc.Project)
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(doc.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range doc.Messages {
		timestamp := ""
		if msg.Timestamp != "" {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp)
		}
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", heading(msg), timestamp, msg.Content)
		if i < len(doc.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}
	return nil
}

func heading(msg model.Message) string {
	switch msg.Kind {
	case model.KindSummary:
		return "Summary"
	case model.KindMessage:
		if msg.Role == model.RoleUser {
			return "User"
		}
		return "Assistant"
	default:
		return "Record"
	}
}

func (e *MarkdownExporter) Extension() string { return "md" }
