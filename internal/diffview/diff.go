// Package diffview computes line-oriented unified diffs between two full
// file contents and renders them as line-classified, escaped markup.
package diffview

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// LineKind classifies one emitted diff line.
type LineKind string

const (
	LineHunk    LineKind = "hunk"
	LineRemoved LineKind = "removed"
	LineAdded   LineKind = "added"
	LineContext LineKind = "context"
)

// Line is one classified diff line. OldNum numbers removed/context lines
// against the old content, NewNum numbers added/context lines against the
// new content; both are zero where not applicable.
type Line struct {
	Kind   LineKind
	OldNum int
	NewNum int
	Text   string
}

var hunkRe = regexp.MustCompile(`-(\d+)(?:,\d+)?\s+\+(\d+)(?:,\d+)?`)

// Compute diffs oldText against newText and returns the classified lines.
// Identical inputs yield an empty slice. Counters are re-seeded from each
// hunk header.
func Compute(oldText, newText string) []Line {
	ud := difflib.UnifiedDiff{
		A:        splitLines(oldText),
		B:        splitLines(newText),
		FromFile: "a",
		ToFile:   "b",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil || text == "" {
		return nil
	}

	var out []Line
	oldNum, newNum := 0, 0
	for _, raw := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(raw, "@@"):
			if m := hunkRe.FindStringSubmatch(raw); m != nil {
				oldNum = atoi(m[1])
				newNum = atoi(m[2])
			}
			out = append(out, Line{Kind: LineHunk, Text: strings.TrimSpace(raw)})
		case strings.HasPrefix(raw, "---"), strings.HasPrefix(raw, "+++"):
			// file headers carry no content
		case strings.HasPrefix(raw, "-"):
			out = append(out, Line{Kind: LineRemoved, OldNum: oldNum, Text: chomp(raw[1:])})
			oldNum++
		case strings.HasPrefix(raw, "+"):
			out = append(out, Line{Kind: LineAdded, NewNum: newNum, Text: chomp(raw[1:])})
			newNum++
		case strings.HasPrefix(raw, " "):
			out = append(out, Line{Kind: LineContext, OldNum: oldNum, NewNum: newNum, Text: chomp(raw[1:])})
			oldNum++
			newNum++
		}
	}
	return out
}

// Render produces the markup representation of the diff between oldText
// and newText, labeled with path. All content is escaped against markup
// injection. Identical inputs yield a single no-changes marker.
func Render(oldText, newText, path string) string {
	lines := Compute(oldText, newText)
	if len(lines) == 0 {
		return fmt.Sprintf(`<div class="diff-no-changes">No changes detected in %s</div>`, Escape(path))
	}

	var b strings.Builder
	b.WriteString(`<div class="diff-container">` + "\n")
	fmt.Fprintf(&b, `<div class="diff-header">📝 <strong>File:</strong> %s</div>`+"\n", Escape(path))
	b.WriteString(`<div class="diff-content">` + "\n")

	for _, ln := range lines {
		switch ln.Kind {
		case LineHunk:
			fmt.Fprintf(&b, `<div class="diff-hunk-header">%s</div>`+"\n", Escape(ln.Text))
		case LineRemoved:
			writeLine(&b, "diff-removed", ln.OldNum, "-", ln.Text)
		case LineAdded:
			writeLine(&b, "diff-added", ln.NewNum, "+", ln.Text)
		case LineContext:
			writeLine(&b, "diff-context", ln.OldNum, " ", ln.Text)
		}
	}

	b.WriteString(`</div>` + "\n")
	b.WriteString(`</div>`)
	return b.String()
}

func writeLine(b *strings.Builder, class string, num int, marker, text string) {
	fmt.Fprintf(b,
		`<div class="diff-line %s"><span class="diff-line-number">%d</span><span class="diff-marker">%s</span><span class="diff-content">%s</span></div>`+"\n",
		class, num, marker, Escape(text))
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// Escape escapes markup-significant characters.
func Escape(s string) string { return escaper.Replace(s) }

// splitLines splits on line boundaries keeping terminators, without
// inventing a trailing empty line for terminator-final input.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func chomp(s string) string {
	return strings.TrimRight(s, "\r\n")
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
