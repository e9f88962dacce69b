// Package animated encodes frames as a looping GIF.
//
// Encoding is two-pass: every frame is measured first, then rasterized again
// on a canvas of the largest width and height seen, so no frame is clipped
// and the container gets one fixed size.
package animated

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"math"
	"slices"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/codeanim/internal/capture"
	"github.com/ivlev/codeanim/internal/export"
	"github.com/ivlev/codeanim/internal/logger"
	"github.com/ivlev/codeanim/internal/system"
)

// Progress ranges of the three phases.
const (
	measureEnd  = 30
	quantizeEnd = 90
	flushEnd    = 99
)

// Encoder is the GIF encoder.
type Encoder struct {
	// Workers bounds parallel quantization. Zero uses every CPU.
	Workers int
	// Palette is shared by every frame when set. Otherwise each frame gets
	// its own palette of its most frequent colors.
	Palette color.Palette
}

// Delay is the per-frame delay in hundredths of a second for fps.
func Delay(fps int) int {
	if fps <= 0 {
		return 0
	}
	return max(1, int(math.Round(100/float64(fps))))
}

func (e *Encoder) Encode(ctx context.Context, job *export.Job) ([]byte, error) {
	log := logger.WithComponent("gif")
	texts := job.Texts()
	n := len(texts)

	box, err := job.MeasureMax(ctx, func(i int) {
		job.Report((i + 1) * measureEnd / n)
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Int("frames", n).Int("width", box.X).Int("height", box.Y).Msg("Measured frames")

	workers := job.Request.Workers
	if workers <= 0 {
		workers = e.Workers
	}
	if workers <= 0 {
		workers = system.DefaultWorkers()
	}
	// each in-flight frame holds an RGBA raster, its color counts and its
	// paletted copy
	workers = system.FrameWindow(box.X*box.Y*9, 1, workers)

	anim := &gif.GIF{
		Image:     make([]*image.Paletted, n),
		Delay:     make([]int, n),
		LoopCount: 0,
		Config: image.Config{
			Width:  box.X,
			Height: box.Y,
		},
	}
	// without a fixed palette every frame carries a local color table
	if len(e.Palette) > 0 {
		anim.Config.ColorModel = e.Palette
	}
	delay := Delay(job.Request.FPS)

	var mu sync.Mutex
	done := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, text := range texts {
		if gctx.Err() != nil {
			break
		}
		r, err := job.Rasterize(ctx, capture.Target{Text: text, Canvas: box})
		if err != nil {
			g.Wait()
			return nil, err
		}
		g.Go(func() error {
			defer r.Release()
			if err := gctx.Err(); err != nil {
				return err
			}
			pal := e.Palette
			if len(pal) == 0 {
				pal = PopularPalette(r.Image, 256)
			}
			anim.Image[i] = Quantize(r.Image, pal, job.Request.Dither)
			anim.Delay[i] = delay

			mu.Lock()
			done++
			job.Report(measureEnd + done*(quantizeEnd-measureEnd)/n)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	job.Encoding()
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, export.Encoding(fmt.Errorf("gif encode: %w", err))
	}
	job.Report(flushEnd)

	log.Debug().Int("bytes", buf.Len()).Int("delay", delay).Int("workers", workers).Msg("GIF encoded")
	return buf.Bytes(), nil
}

// Quantize maps src onto p, optionally with Floyd-Steinberg error diffusion.
func Quantize(src *image.RGBA, p color.Palette, dither bool) *image.Paletted {
	dst := image.NewPaletted(src.Bounds(), p)
	var d draw.Drawer = draw.Src
	if dither {
		d = draw.FloydSteinberg
	}
	d.Draw(dst, dst.Bounds(), src, src.Bounds().Min)
	return dst
}

// PopularPalette picks up to size of the most frequent colors in img, most
// frequent first. An empty image gets the Plan 9 palette.
func PopularPalette(img *image.RGBA, size int) color.Palette {
	counts := make(map[color.RGBA]int)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			counts[img.RGBAAt(x, y)]++
		}
	}
	if len(counts) == 0 {
		return palette.Plan9
	}

	type entry struct {
		c color.RGBA
		n int
	}
	entries := make([]entry, 0, len(counts))
	for c, n := range counts {
		entries = append(entries, entry{c, n})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if a.n != b.n {
			return b.n - a.n
		}
		return cmp.Compare(packRGBA(a.c), packRGBA(b.c))
	})

	p := make(color.Palette, 0, min(size, len(entries)))
	for _, e := range entries[:min(size, len(entries))] {
		p = append(p, e.c)
	}
	return p
}

func packRGBA(c color.RGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}
