// Package highlight colors source text with chroma. It only affects how a
// frame looks, never which characters it contains.
package highlight

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Span is a run of text sharing one style.
type Span struct {
	Text   string
	Color  color.RGBA
	Bold   bool
	Italic bool
}

// Highlighter annotates text using a single chroma style.
type Highlighter struct {
	style    *chroma.Style
	tabWidth int
}

// New looks up a chroma style by name, falling back to chroma's default.
func New(styleName string, tabWidth int) *Highlighter {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	if tabWidth <= 0 {
		tabWidth = 4
	}
	return &Highlighter{style: style, tabWidth: tabWidth}
}

// StyleName is the resolved chroma style.
func (h *Highlighter) StyleName() string {
	return h.style.Name
}

// Background is the style's background color, if it defines one.
func (h *Highlighter) Background() (color.RGBA, bool) {
	e := h.style.Get(chroma.Background)
	if !e.Background.IsSet() {
		return color.RGBA{}, false
	}
	return toRGBA(e.Background), true
}

// Foreground is the style's plain text color.
func (h *Highlighter) Foreground() color.RGBA {
	e := h.style.Get(chroma.Text)
	if !e.Colour.IsSet() {
		return color.RGBA{A: 255}
	}
	return toRGBA(e.Colour)
}

// Lexer picks a lexer by language name, then by content, then plain text.
func Lexer(language, text string) chroma.Lexer {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(text)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// Annotate splits text into styled spans. Concatenating the span texts
// yields text exactly.
func (h *Highlighter) Annotate(text, language string) ([]Span, error) {
	if text == "" {
		return nil, nil
	}

	iterator, err := Lexer(language, text).Tokenise(nil, text)
	if err != nil {
		return nil, fmt.Errorf("tokenise %s: %w", language, err)
	}

	fg := h.Foreground()
	var spans []Span
	offset := 0
	for _, tok := range iterator.Tokens() {
		if offset == len(text) {
			break
		}
		value := tok.Value
		// lexers may append a trailing newline
		if len(value) > len(text)-offset {
			value = value[:len(text)-offset]
		}
		if text[offset:offset+len(value)] != value {
			return []Span{{Text: text, Color: fg}}, nil
		}
		offset += len(value)

		entry := h.style.Get(tok.Type)
		c := fg
		if entry.Colour.IsSet() {
			c = toRGBA(entry.Colour)
		}
		spans = append(spans, Span{
			Text:   value,
			Color:  c,
			Bold:   entry.Bold == chroma.Yes,
			Italic: entry.Italic == chroma.Yes,
		})
	}
	if offset < len(text) {
		spans = append(spans, Span{Text: text[offset:], Color: fg})
	}

	return spans, nil
}

// Markup renders text as HTML with inline styles, suitable for embedding in
// an SVG foreignObject.
func (h *Highlighter) Markup(text, language string) (string, error) {
	iterator, err := Lexer(language, text).Tokenise(nil, text)
	if err != nil {
		return "", fmt.Errorf("tokenise %s: %w", language, err)
	}

	formatter := html.New(
		html.WithClasses(false),
		html.TabWidth(h.tabWidth),
	)

	var buf strings.Builder
	if err := formatter.Format(&buf, h.style, iterator); err != nil {
		return "", fmt.Errorf("format markup: %w", err)
	}
	return buf.String(), nil
}

func toRGBA(c chroma.Colour) color.RGBA {
	return color.RGBA{R: c.Red(), G: c.Green(), B: c.Blue(), A: 255}
}
