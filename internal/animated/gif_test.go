package animated

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/codeanim/internal/animation"
	"github.com/ivlev/codeanim/internal/capture"
	"github.com/ivlev/codeanim/internal/config"
	"github.com/ivlev/codeanim/internal/export"
)

// gridSurface sizes a frame as 10px per column of the longest line by 20px
// per line, and records every canvas it was asked to draw on.
type gridSurface struct {
	mu       sync.Mutex
	canvases []image.Point
	// tint paints each frame in a color of its own instead of blue
	tint bool
}

func tintOf(text string) color.RGBA {
	return color.RGBA{uint8(37 * len(text)), 0x80, 0xff, 0xff}
}

func gridSize(text string) image.Point {
	lines := strings.Split(text, "\n")
	w := 0
	for _, l := range lines {
		w = max(w, len(l))
	}
	return image.Pt(10*w+2, 20*len(lines))
}

func (s *gridSurface) Measure(_ context.Context, t capture.Target) (image.Point, error) {
	return gridSize(t.Text), nil
}

func (s *gridSurface) Rasterize(_ context.Context, t capture.Target) (*capture.Raster, error) {
	natural := gridSize(t.Text)
	if t.Canvas.X < natural.X || t.Canvas.Y < natural.Y {
		return nil, assert.AnError
	}
	s.mu.Lock()
	s.canvases = append(s.canvases, t.Canvas)
	s.mu.Unlock()

	ink := color.RGBA{0, 0, 0xff, 0xff}
	if s.tint {
		ink = tintOf(t.Text)
	}
	img := image.NewRGBA(image.Rectangle{Max: t.Canvas})
	for y := 0; y < natural.Y; y++ {
		for x := 0; x < natural.X; x++ {
			img.SetRGBA(x, y, ink)
		}
	}
	return &capture.Raster{Width: t.Canvas.X, Height: t.Canvas.Y, Image: img}, nil
}

func (s *gridSurface) Close() error { return nil }

func generate(t *testing.T, text string) []animation.Frame {
	t.Helper()
	frames, err := animation.Generate(text, config.AnimationConfig{Speed: 5})
	require.NoError(t, err)
	return frames
}

func TestDelay(t *testing.T) {
	tests := map[int]int{1: 100, 10: 10, 30: 3, 60: 2, 200: 1, 1000: 1, 0: 0}
	for fps, want := range tests {
		assert.Equal(t, want, Delay(fps), "fps %d", fps)
	}
}

func TestBoundingBoxIsMaxOfEveryFrame(t *testing.T) {
	// widest line comes first, most lines come last
	frames := generate(t, "abcdefgh\na\nb\nc")
	s := &gridSurface{}
	job := export.NewJob(frames, export.Request{Format: export.FormatGIF, FPS: 10, Workers: 3}, s, nil)

	data, err := (&Encoder{}).Encode(context.Background(), job)
	require.NoError(t, err)

	want := image.Pt(82, 80)
	for _, c := range s.canvases {
		assert.Equal(t, want, c)
	}

	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, want.X, g.Config.Width)
	assert.Equal(t, want.Y, g.Config.Height)
	require.Len(t, g.Image, len(frames))
	for i, img := range g.Image {
		assert.Equal(t, want, img.Bounds().Size(), "frame %d", i)
		assert.Equal(t, 10, g.Delay[i])
	}
	assert.Equal(t, 0, g.LoopCount)
}

func TestEveryFrameKeepsItsColors(t *testing.T) {
	// no single frame holds the colors of all the others
	frames := generate(t, "abcdef")
	s := &gridSurface{tint: true}
	job := export.NewJob(frames, export.Request{Format: export.FormatGIF, FPS: 10, Workers: 2}, s, nil)

	data, err := (&Encoder{}).Encode(context.Background(), job)
	require.NoError(t, err)
	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, g.Image, len(frames))
	for i, img := range g.Image {
		want := tintOf(string(frames[i]))
		got := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
		assert.Equal(t, want, got, "frame %d", i)
	}
}

func TestRasterizesEachFrameOnce(t *testing.T) {
	for _, text := range []string{"a", "abc\nde"} {
		frames := generate(t, text)
		s := &gridSurface{}
		job := export.NewJob(frames, export.Request{Format: export.FormatGIF, FPS: 10}, s, nil)

		_, err := (&Encoder{}).Encode(context.Background(), job)
		require.NoError(t, err)
		assert.Equal(t, len(frames), job.Rasterized(), text)
		assert.Len(t, s.canvases, len(frames), text)
	}
}

func TestFixedPaletteIsShared(t *testing.T) {
	frames := generate(t, "ab")
	job := export.NewJob(frames, export.Request{Format: export.FormatGIF, FPS: 10}, &gridSurface{}, nil)

	data, err := (&Encoder{Palette: palette.Plan9}).Encode(context.Background(), job)
	require.NoError(t, err)
	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, color.Palette(palette.Plan9), g.Config.ColorModel)
}

func TestFramesKeepOrder(t *testing.T) {
	frames := generate(t, "abc\nde")
	s := &gridSurface{}
	job := export.NewJob(frames, export.Request{Format: export.FormatGIF, FPS: 25, Workers: 4}, s, nil)

	data, err := (&Encoder{}).Encode(context.Background(), job)
	require.NoError(t, err)
	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)

	// count blue pixels: the revealed area only grows
	prev := -1
	for i, img := range g.Image {
		blue := 0
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if _, _, bl, _ := img.At(x, y).RGBA(); bl > 0x8000 {
					blue++
				}
			}
		}
		assert.GreaterOrEqual(t, blue, prev, "frame %d", i)
		prev = blue
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	frames := generate(t, "line one\nline two\nline three")
	var mu sync.Mutex
	var progress []int
	job := export.NewJob(frames, export.Request{Format: export.FormatGIF, FPS: 30}, &gridSurface{}, func(p int) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	})

	_, err := (&Encoder{Workers: 8}).Encode(context.Background(), job)
	require.NoError(t, err)

	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.Equal(t, flushEnd, progress[len(progress)-1])
	assert.Contains(t, progress, measureEnd)
	assert.Contains(t, progress, quantizeEnd)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := export.NewJob(generate(t, "abc"), export.Request{Format: export.FormatGIF, FPS: 10}, &gridSurface{}, nil)

	_, err := (&Encoder{}).Encode(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithTextRasterizer(t *testing.T) {
	cfg := config.Default()
	r, err := capture.NewTextRasterizer(cfg.Theme, "go")
	require.NoError(t, err)

	c := export.NewCoordinator(r, map[export.Format]export.Encoder{export.FormatGIF: &Encoder{}})
	frames := generate(t, "package main\n\nfunc main() {}")

	var last int
	res, err := c.Export(context.Background(), frames, export.Request{Format: export.FormatGIF, FPS: 20, Dither: true}, func(p int) { last = p })
	require.NoError(t, err)
	assert.Equal(t, 100, last)
	assert.Equal(t, "image/gif", res.MIME)

	g, err := gif.DecodeAll(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Len(t, g.Image, len(frames))
	assert.Equal(t, 5, g.Delay[0])
}

func TestQuantize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	for _, dither := range []bool{false, true} {
		dst := Quantize(src, palette.Plan9, dither)
		assert.Equal(t, src.Bounds(), dst.Bounds())
		r, g, b, _ := dst.At(1, 1).RGBA()
		assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
	}
}

func TestPopularPalette(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	bg := color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
	fg := color.RGBA{0x10, 0x20, 0x30, 0xff}
	img.SetRGBA(0, 0, bg)
	img.SetRGBA(1, 0, bg)
	img.SetRGBA(2, 0, fg)

	p := PopularPalette(img, 256)
	assert.Equal(t, color.Palette{bg, fg}, p)
	assert.Len(t, PopularPalette(img, 1), 1)
	assert.Equal(t, palette.Plan9, PopularPalette(image.NewRGBA(image.Rectangle{}), 256))
}
