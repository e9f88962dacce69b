package capture

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/codeanim/internal/config"
	"github.com/ivlev/codeanim/internal/highlight"
	"github.com/ivlev/codeanim/internal/logger"
)

const (
	faceRegular = iota
	faceBold
	faceItalic
	faceBoldItalic
)

// TextRasterizer draws highlighted source text in a monospace font.
type TextRasterizer struct {
	theme    config.Theme
	language string
	hl       *highlight.Highlighter
	fonts    [4]*opentype.Font
	bg, fg   color.RGBA
	badge    image.Image
}

// NewTextRasterizer prepares fonts, colors and the optional badge for theme.
func NewTextRasterizer(theme config.Theme, language string) (*TextRasterizer, error) {
	if theme.FontSize <= 0 {
		theme.FontSize = 14
	}
	if theme.DPI <= 0 {
		theme.DPI = 72
	}
	if theme.LineHeight <= 0 {
		theme.LineHeight = 1.5
	}
	if theme.Padding < 0 {
		theme.Padding = 0
	}
	if theme.TabWidth <= 0 {
		theme.TabWidth = 4
	}

	r := &TextRasterizer{
		theme:    theme,
		language: language,
		hl:       highlight.New(theme.Style, theme.TabWidth),
	}

	for i, ttf := range [][]byte{gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF} {
		f, err := opentype.Parse(ttf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font: %w", err)
		}
		r.fonts[i] = f
	}

	var err error
	r.bg, err = resolveColor(theme.Background, r.hl.Background)
	if err != nil {
		return nil, fmt.Errorf("%w: background: %v", config.ErrInvalidConfig, err)
	}
	r.fg, err = resolveColor(theme.Foreground, func() (color.RGBA, bool) { return r.hl.Foreground(), true })
	if err != nil {
		return nil, fmt.Errorf("%w: foreground: %v", config.ErrInvalidConfig, err)
	}

	if theme.Badge != "" {
		q, err := qrcode.New(theme.Badge, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("%w: badge: %v", config.ErrInvalidConfig, err)
		}
		q.DisableBorder = true
		q.BackgroundColor = r.bg
		q.ForegroundColor = r.fg
		r.badge = q.Image(r.badgeSize())
	}

	return r, nil
}

func (r *TextRasterizer) badgeSize() int {
	return max(48, int(r.theme.FontSize*r.theme.DPI/72*4))
}

// Open creates a surface with its own font faces and buffer pool.
func (r *TextRasterizer) Open(ctx context.Context) (Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &textSurface{r: r, pool: newBufferPool()}
	for i, f := range r.fonts {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    r.theme.FontSize,
			DPI:     r.theme.DPI,
			Hinting: font.HintingFull,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create font face: %w", err)
		}
		s.faces[i] = face
	}

	m := s.faces[faceRegular].Metrics()
	s.ascent = m.Ascent.Ceil()
	s.lineHeight = max(int(r.theme.FontSize*r.theme.LineHeight*r.theme.DPI/72+0.5), m.Height.Ceil())
	s.leading = (s.lineHeight - (m.Ascent + m.Descent).Ceil()) / 2

	logger.WithComponent("capture").Debug().
		Int("line_height", s.lineHeight).
		Str("style", r.hl.StyleName()).
		Msg("Surface opened")
	return s, nil
}

type textSurface struct {
	r          *TextRasterizer
	faces      [4]font.Face
	pool       *bufferPool
	ascent     int
	leading    int
	lineHeight int
	closed     bool
}

func (s *textSurface) Measure(ctx context.Context, t Target) (image.Point, error) {
	if s.closed {
		return image.Point{}, ErrSurfaceClosed
	}
	if err := ctx.Err(); err != nil {
		return image.Point{}, err
	}
	return s.naturalSize(t.Text), nil
}

func (s *textSurface) naturalSize(text string) image.Point {
	pad := s.r.theme.Padding
	lines := strings.Split(text, "\n")

	width := 0
	for _, line := range lines {
		w := font.MeasureString(s.faces[faceRegular], expandTabs(line, s.r.theme.TabWidth))
		width = max(width, w.Ceil())
	}

	size := image.Point{
		X: 2*pad + width,
		Y: 2*pad + len(lines)*s.lineHeight,
	}
	if s.r.badge != nil {
		b := s.r.badge.Bounds().Size()
		size.X = max(size.X, 2*pad+b.X)
		size.Y += b.Y + pad
	}
	size.X = max(size.X, 1)
	return size
}

func (s *textSurface) Rasterize(ctx context.Context, t Target) (*Raster, error) {
	if s.closed {
		return nil, ErrSurfaceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	natural := s.naturalSize(t.Text)
	canvas := t.Canvas
	if canvas == (image.Point{}) {
		canvas = natural
	}
	if canvas.X < natural.X || canvas.Y < natural.Y {
		return nil, fmt.Errorf("frame %dx%d does not fit canvas %dx%d", natural.X, natural.Y, canvas.X, canvas.Y)
	}

	spans, err := s.r.hl.Annotate(t.Text, s.r.language)
	if err != nil {
		logger.WithComponent("capture").Debug().Err(err).Msg("Highlighting failed, drawing plain text")
		spans = []highlight.Span{{Text: t.Text, Color: s.r.fg}}
	}

	img := s.pool.get(image.Rect(0, 0, canvas.X, canvas.Y))
	draw.Draw(img, img.Bounds(), image.NewUniform(s.r.bg), image.Point{}, draw.Src)
	s.drawSpans(img, spans)

	if s.r.badge != nil {
		b := s.r.badge.Bounds()
		pad := s.r.theme.Padding
		at := image.Pt(canvas.X-pad-b.Dx(), canvas.Y-pad-b.Dy())
		draw.Draw(img, b.Add(at), s.r.badge, b.Min, draw.Over)
	}

	return &Raster{
		Width:   canvas.X,
		Height:  canvas.Y,
		Image:   img,
		release: s.pool.put,
	}, nil
}

func (s *textSurface) drawSpans(img *image.RGBA, spans []highlight.Span) {
	pad := s.r.theme.Padding
	tab := s.r.theme.TabWidth
	defaultFg := s.r.hl.Foreground()

	line, col := 0, 0
	d := &font.Drawer{Dst: img}
	newline := func() {
		line++
		col = 0
	}
	dot := func() fixed.Point26_6 {
		return fixed.P(pad, pad+line*s.lineHeight+s.leading+s.ascent)
	}

	for _, span := range spans {
		c := span.Color
		if c == defaultFg {
			c = s.r.fg
		}
		d.Src = image.NewUniform(c)
		d.Face = s.faces[faceIndex(span)]

		for _, r := range span.Text {
			switch r {
			case '\n':
				newline()
				continue
			case '\r':
				continue
			case '\t':
				col += tab - col%tab
				continue
			}
			d.Dot = dot()
			d.Dot.X += advance(s.faces[faceRegular], col)
			d.DrawString(string(r))
			col++
		}
	}
}

func (s *textSurface) Markup(ctx context.Context, t Target) (string, error) {
	if s.closed {
		return "", ErrSurfaceClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.r.hl.Markup(t.Text, s.r.language)
}

// Close releases the faces and the pooled buffers. It is safe to call twice.
func (s *textSurface) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var firstErr error
	for _, face := range s.faces {
		if face == nil {
			continue
		}
		if err := face.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.pool.drain()
	return firstErr
}

func faceIndex(span highlight.Span) int {
	switch {
	case span.Bold && span.Italic:
		return faceBoldItalic
	case span.Bold:
		return faceBold
	case span.Italic:
		return faceItalic
	}
	return faceRegular
}

// advance is the x offset of column col in a monospace face.
func advance(face font.Face, col int) fixed.Int26_6 {
	a, _ := face.GlyphAdvance('0')
	return a * fixed.Int26_6(col)
}

func expandTabs(line string, tabWidth int) string {
	if !strings.ContainsAny(line, "\t\r") {
		return line
	}
	var b strings.Builder
	col := 0
	for _, r := range line {
		switch r {
		case '\r':
			continue
		case '\t':
			n := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}

// resolveColor parses "#rrggbb", or asks fallback when hex is empty. A
// missing fallback means white.
func resolveColor(hex string, fallback func() (color.RGBA, bool)) (color.RGBA, error) {
	if hex == "" {
		if c, ok := fallback(); ok {
			return c, nil
		}
		return color.RGBA{255, 255, 255, 255}, nil
	}
	return parseHex(hex)
}

func parseHex(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: expected 6-char hex", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
