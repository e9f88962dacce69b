package still

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/codeanim/internal/animation"
	"github.com/ivlev/codeanim/internal/capture"
	"github.com/ivlev/codeanim/internal/config"
	"github.com/ivlev/codeanim/internal/export"
)

func newJob(t *testing.T, text string, format export.Format) (*export.Job, capture.Surface) {
	t.Helper()
	cfg := config.Default()
	r, err := capture.NewTextRasterizer(cfg.Theme, cfg.Language)
	require.NoError(t, err)
	s, err := r.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	frames, err := animation.Generate(text, cfg.Animation)
	require.NoError(t, err)
	return export.NewJob(frames, export.Request{Format: format, FileName: "snippet"}, s, nil), s
}

func TestPNGUsesFinalFrameOnly(t *testing.T) {
	text := "const a = 1;\nconst longer = 'value';"
	job, s := newJob(t, text, export.FormatPNG)

	data, err := (&PNGEncoder{}).Encode(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 1, job.Rasterized())

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	want, err := s.Measure(context.Background(), capture.Target{Text: text})
	require.NoError(t, err)
	assert.Equal(t, want, img.Bounds().Size())
}

func TestSVGWithMarkup(t *testing.T) {
	job, s := newJob(t, "let x = '<tag>';", export.FormatSVG)
	size, err := s.Measure(context.Background(), capture.Target{Text: "let x = '<tag>';"})
	require.NoError(t, err)

	data, err := (&SVGEncoder{}).Encode(context.Background(), job)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, fmt.Sprintf(`width="%d" height="%d"`, size.X, size.Y))
	assert.Contains(t, out, "<title>snippet.svg</title>")
	assert.Contains(t, out, "<foreignObject")
	assert.Contains(t, out, "&lt;tag&gt;")
	assert.Zero(t, job.Rasterized())
	assertWellFormed(t, data)
}

func TestSVGRasterFallback(t *testing.T) {
	job, _ := newJob(t, "x := 1", export.FormatSVG)

	data, err := (&SVGEncoder{Raster: true}).Encode(context.Background(), job)
	require.NoError(t, err)
	assert.Contains(t, string(data), "data:image/png;base64,")
	assert.NotContains(t, string(data), "foreignObject")
	assert.Equal(t, 1, job.Rasterized())
	assertWellFormed(t, data)
}

func TestStillThroughCoordinator(t *testing.T) {
	cfg := config.Default()
	r, err := capture.NewTextRasterizer(cfg.Theme, cfg.Language)
	require.NoError(t, err)
	c := export.NewCoordinator(r, map[export.Format]export.Encoder{
		export.FormatPNG: &PNGEncoder{},
		export.FormatSVG: &SVGEncoder{},
	})
	frames, err := animation.Generate("function f() {}\n", cfg.Animation)
	require.NoError(t, err)

	for _, f := range []export.Format{export.FormatPNG, export.FormatSVG} {
		t.Run(string(f), func(t *testing.T) {
			var last int
			res, err := c.Export(context.Background(), frames, export.Request{Format: f}, func(p int) { last = p })
			require.NoError(t, err)
			assert.Equal(t, 100, last)
			assert.Equal(t, "code-animation"+f.Ext(), res.FileName)
			assert.Equal(t, f.MIME(), res.MIME)
			assert.NotEmpty(t, res.Data)
		})
	}
}

func assertWellFormed(t *testing.T, data []byte) {
	t.Helper()
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = true
	for {
		_, err := d.Token()
		if err != nil {
			assert.Equal(t, "EOF", err.Error())
			return
		}
	}
}
