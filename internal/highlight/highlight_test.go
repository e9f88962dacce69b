package highlight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func join(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

func TestAnnotatePreservesText(t *testing.T) {
	h := New("github", 4)

	tests := []struct {
		language string
		text     string
	}{
		{"javascript", "const x = 1;"},
		{"javascript", "function f() {\n  return 'a';\n}\n"},
		{"go", "package main\n\nfunc main() {}"},
		{"not-a-language", "just text\n"},
		{"python", "def f"},
	}

	for _, tt := range tests {
		t.Run(tt.language, func(t *testing.T) {
			spans, err := h.Annotate(tt.text, tt.language)
			require.NoError(t, err)
			assert.Equal(t, tt.text, join(spans))
		})
	}
}

func TestAnnotateColorsKeywords(t *testing.T) {
	h := New("monokai", 4)
	spans, err := h.Annotate("const x = 'a';", "javascript")
	require.NoError(t, err)
	require.NotEmpty(t, spans)

	var keyword, str *Span
	for i := range spans {
		switch spans[i].Text {
		case "const":
			keyword = &spans[i]
		case "'a'":
			str = &spans[i]
		}
	}
	require.NotNil(t, keyword)
	require.NotNil(t, str)
	assert.NotEqual(t, keyword.Color, str.Color)
}

func TestAnnotateEmpty(t *testing.T) {
	spans, err := New("github", 4).Annotate("", "go")
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestUnknownStyleFallsBack(t *testing.T) {
	h := New("no-such-style", 0)
	assert.NotEmpty(t, h.StyleName())
	assert.Equal(t, uint8(255), h.Foreground().A)
}

func TestMarkupIsInlineStyled(t *testing.T) {
	out, err := New("github", 4).Markup("let a = \"<b>\";", "javascript")
	require.NoError(t, err)
	assert.Contains(t, out, "style=")
	assert.Contains(t, out, "&lt;b&gt;")
	assert.NotContains(t, out, "class=\"chroma\"")
}
