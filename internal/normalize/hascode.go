package normalize

import "regexp"

// codePatterns match common signals that a message carries code: fenced
// blocks, Python/HTML/shell syntax markers. Any single match is enough.
// Patterns are ASCII-only on purpose.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile("```[\\w]*\\n"),    // fenced code block
	regexp.MustCompile(`def \w+\(`),       // function definition
	regexp.MustCompile(`class \w+`),       // class definition
	regexp.MustCompile(`import \w+`),      // import statement
	regexp.MustCompile(`from \w+`),        // from-import
	regexp.MustCompile(`<[a-zA-Z][^>]*>`), // HTML/XML tag
	regexp.MustCompile(`\$\s*\w+`),        // shell prompt / variable
}

// HasCode reports whether content appears to contain code.
func HasCode(content string) bool {
	for _, p := range codePatterns {
		if p.MatchString(content) {
			return true
		}
	}
	return false
}
