// Package still encodes the final frame as a single image.
package still

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"image/png"

	"github.com/ivlev/codeanim/internal/capture"
	"github.com/ivlev/codeanim/internal/export"
)

// PNGEncoder writes the final frame at its natural size.
type PNGEncoder struct {
	Compression png.CompressionLevel
}

func (e *PNGEncoder) Encode(ctx context.Context, job *export.Job) ([]byte, error) {
	r, err := job.Rasterize(ctx, capture.Target{Text: job.Last()})
	if err != nil {
		return nil, err
	}
	defer r.Release()
	job.Report(60)

	job.Encoding()
	data, err := encodePNG(r, e.Compression)
	if err != nil {
		return nil, export.Encoding(err)
	}
	job.Report(95)
	return data, nil
}

func encodePNG(r *capture.Raster, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, r.Image); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// SVGEncoder wraps the final frame in an SVG document sized to the frame.
// Surfaces that produce markup are embedded as live HTML in a foreignObject;
// others as a PNG image.
type SVGEncoder struct {
	// Raster forces the embedded PNG even when markup is available.
	Raster bool
}

func (e *SVGEncoder) Encode(ctx context.Context, job *export.Job) ([]byte, error) {
	last := job.Last()
	box, err := job.Surface.Measure(ctx, capture.Target{Text: last})
	if err != nil {
		return nil, export.Rasterization(err)
	}
	t := capture.Target{Text: last, Canvas: box}
	title := job.Request.OutputName()
	job.Report(20)

	if m, ok := job.Surface.(capture.Markuper); ok && !e.Raster {
		markup, err := m.Markup(ctx, t)
		if err != nil {
			return nil, export.Rasterization(err)
		}
		job.Report(60)
		job.Encoding()
		return foreignObjectSVG(box.X, box.Y, title, markup), nil
	}

	r, err := job.Rasterize(ctx, t)
	if err != nil {
		return nil, err
	}
	defer r.Release()
	job.Report(60)

	job.Encoding()
	data, err := encodePNG(r, png.DefaultCompression)
	if err != nil {
		return nil, export.Encoding(err)
	}
	job.Report(90)
	return imageSVG(r.Width, r.Height, title, data), nil
}

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

func foreignObjectSVG(w, h int, title, markup string) []byte {
	var b bytes.Buffer
	b.WriteString(svgHeader)
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, w, h, w, h)
	fmt.Fprintf(&b, "<title>%s</title>", html.EscapeString(title))
	fmt.Fprintf(&b, `<foreignObject x="0" y="0" width="%d" height="%d">`, w, h)
	b.WriteString(`<div xmlns="http://www.w3.org/1999/xhtml">`)
	b.WriteString(markup)
	b.WriteString("</div></foreignObject></svg>\n")
	return b.Bytes()
}

func imageSVG(w, h int, title string, pngData []byte) []byte {
	var b bytes.Buffer
	b.WriteString(svgHeader)
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, w, h, w, h)
	fmt.Fprintf(&b, "<title>%s</title>", html.EscapeString(title))
	fmt.Fprintf(&b, `<image x="0" y="0" width="%d" height="%d" href="data:image/png;base64,`, w, h)
	b.WriteString(base64.StdEncoding.EncodeToString(pngData))
	b.WriteString(`"/></svg>` + "\n")
	return b.Bytes()
}
