package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsMarkdown(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{"bold", "**bold**", true},
		{"plain", "plain text", false},
		{"paragraph break", "line1\n\nline2", true},
		{"crlf paragraph break", "line1\r\n\r\nline2", true},
		{"single newline", "line1\nline2", false},
		{"italic", "an *important* word", true},
		{"underscore italic", "an _important_ word", true},
		{"snake case", "call user_role_cache now", false},
		{"header", "# Title", true},
		{"hash without space", "#hashtag", false},
		{"list", "- item", true},
		{"ordered list", "1. first", true},
		{"link", "see [docs](https://example.com)", true},
		{"inline code", "run `go test`", true},
		{"blockquote", "> quoted", true},
		{"table", "| a | b |", true},
		{"empty", "   ", false},
		{"arithmetic", "2 * 3 = 6", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ContainsMarkdown(c.input))
		})
	}
}
