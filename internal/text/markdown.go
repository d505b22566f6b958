package text

import (
	"regexp"
	"strings"
)

var markdownPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\*\*[^*\n]+\*\*|__[^_\n]+__`),      // bold
	regexp.MustCompile(`(^|[^*])\*[^*\s][^*\n]*\*`),        // italic
	regexp.MustCompile(`(^|\s)_[^_\s][^_\n]*_(\s|$)`),      // italic, underscores inside words are ignored
	regexp.MustCompile(`(?m)^#{1,6}\s+\S`),                 // header
	regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+\S`),       // list item
	regexp.MustCompile(`\[[^\]\n]+\]\([^)\n]+\)`),          // link or image
	regexp.MustCompile("`[^`\n]+`|(?m)^```"),               // code
	regexp.MustCompile(`(?m)^>\s?\S`),                      // blockquote
	regexp.MustCompile(`(?m)^\|.+\|\s*$`),                  // table row
}

// ContainsMarkdown reports whether s looks like markdown rather than plain text.
// A blank line between paragraphs counts as markdown.
func ContainsMarkdown(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	if strings.Contains(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		return true
	}
	for _, p := range markdownPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
