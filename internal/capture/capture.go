// Package capture rasterizes frames. Encoders never draw text themselves:
// they open a Surface for the duration of one export and ask it to measure
// and rasterize frames.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ErrSurfaceClosed is returned by a Surface used after Close.
var ErrSurfaceClosed = errors.New("capture surface closed")

// Target is one frame to draw. A zero Canvas means the frame's natural size.
type Target struct {
	Text   string
	Canvas image.Point
}

// Raster is a rasterized frame. Call Release once the pixels are consumed.
type Raster struct {
	Width, Height int
	Image         *image.RGBA

	release func(*image.RGBA)
}

// Release hands the buffer back to the surface that produced it.
func (r *Raster) Release() {
	if r == nil || r.release == nil {
		return
	}
	r.release(r.Image)
	r.release = nil
	r.Image = nil
}

// Surface measures and rasterizes frames for a single export run. It is not
// safe for concurrent use.
type Surface interface {
	// Measure returns the natural size of the target without drawing it.
	Measure(ctx context.Context, t Target) (image.Point, error)
	// Rasterize draws the target. The canvas must be at least the natural size.
	Rasterize(ctx context.Context, t Target) (*Raster, error)
	Close() error
}

// Markuper is implemented by surfaces that can also describe a frame as
// styled markup (used for vector output).
type Markuper interface {
	Markup(ctx context.Context, t Target) (string, error)
}

// Adapter hands out independent surfaces, one per export run.
type Adapter interface {
	Open(ctx context.Context) (Surface, error)
}

// MeasureMax measures every text and returns the largest width and height
// seen. onEach is called after each measurement with the index just done.
func MeasureMax(ctx context.Context, s Surface, texts []string, onEach func(i int)) (image.Point, error) {
	var box image.Point
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return image.Point{}, err
		}
		size, err := s.Measure(ctx, Target{Text: text})
		if err != nil {
			return image.Point{}, fmt.Errorf("measure frame %d: %w", i, err)
		}
		box.X = max(box.X, size.X)
		box.Y = max(box.Y, size.Y)
		if onEach != nil {
			onEach(i)
		}
	}
	return box, nil
}
