// Package video encodes frames into MP4 or WebM through an external engine.
//
// The engine is used as a transactional working set: every sampled frame is
// written as a numbered PNG, one encode job turns them into the container,
// the output is read back, and everything is deleted again whether or not the
// job succeeded.
package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"sync"

	"github.com/ivlev/codeanim/internal/capture"
	"github.com/ivlev/codeanim/internal/export"
	"github.com/ivlev/codeanim/internal/logger"
)

// Progress ranges of the capture and encode phases.
const (
	captureEnd = 50
	encodeEnd  = 95
	readEnd    = 98
)

// FramePattern names the intermediate images, in ffmpeg's printf syntax.
const FramePattern = "frame_%05d.png"

// Encoder is the video encoder for both MP4 and WebM.
type Encoder struct {
	Engine Engine
	// Hardware prefers a hardware H.264 encoder for MP4 when the engine has one.
	Hardware bool

	mu        sync.Mutex
	available []string
}

// New returns an encoder over engine.
func New(engine Engine, hardware bool) *Encoder {
	return &Encoder{Engine: engine, Hardware: hardware}
}

// encoders asks the engine once and remembers a successful answer.
func (e *Encoder) encoders(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.available != nil {
		return e.available, nil
	}
	list, err := e.Engine.Encoders(ctx)
	if err != nil {
		return nil, err
	}
	e.available = list
	return list, nil
}

// Codec returns the encoder name f would be encoded with.
func (e *Encoder) Codec(ctx context.Context, f export.Format) (string, error) {
	available, err := e.encoders(ctx)
	if err != nil {
		return "", export.Unavailable(err)
	}
	codec, err := selectCodec(f, available, e.Hardware)
	if err != nil {
		return "", export.Unavailable(err)
	}
	return codec, nil
}

// Probe checks that the engine runs and offers a codec for f.
func (e *Encoder) Probe(ctx context.Context, f export.Format) error {
	codec, err := e.Codec(ctx, f)
	if err != nil {
		return err
	}
	logger.WithComponent("video").Debug().Str("format", string(f)).Str("codec", codec).Msg("Video engine available")
	return nil
}

// SampleIndex maps output frame k of n onto one of total generated frames.
// The first output frame shows the first generated frame and the last shows
// the last.
func SampleIndex(k, n, total int) int {
	if total <= 0 {
		return 0
	}
	if n <= 1 {
		return total - 1
	}
	return int(math.Round(float64(k) * float64(total-1) / float64(n-1)))
}

func (e *Encoder) Encode(ctx context.Context, job *export.Job) (data []byte, err error) {
	req := job.Request
	log := logger.WithComponent("video").With().Str("format", string(req.Format)).Logger()

	codec, err := e.Codec(ctx, req.Format)
	if err != nil {
		return nil, err
	}

	texts := job.Texts()
	n := req.VideoFrames()
	if n < 1 {
		return nil, export.Encoding(fmt.Errorf("%d fps over %vs gives no frames", req.FPS, req.Duration))
	}

	box, err := job.MeasureMax(ctx, nil)
	if err != nil {
		return nil, err
	}

	ws, err := e.Engine.Open(ctx)
	if err != nil {
		return nil, export.Encoding(fmt.Errorf("open working set: %w", err))
	}

	output := "output" + req.Format.Ext()
	written := make([]string, 0, n)
	defer func() {
		names := append(written, output)
		if derr := ws.Delete(names...); derr != nil {
			log.Warn().Err(&export.Error{Kind: export.KindResourceCleanup, Format: req.Format, Err: derr}).Msg("Cleanup failed")
		}
		if cerr := ws.Close(); cerr != nil {
			log.Warn().Err(&export.Error{Kind: export.KindResourceCleanup, Format: req.Format, Err: cerr}).Msg("Cleanup failed")
		}
	}()

	// consecutive output frames often show the same generated frame
	var (
		lastIndex = -1
		lastPNG   []byte
		filter    string
	)
	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := SampleIndex(k, n, len(texts))
		if idx != lastIndex {
			r, err := job.Rasterize(ctx, capture.Target{Text: texts[idx], Canvas: box})
			if err != nil {
				return nil, err
			}
			if lastIndex < 0 {
				filter = evenPadFilter(box, r.Image.RGBAAt(0, 0))
			}
			lastPNG, err = encodeFrame(r.Image)
			r.Release()
			if err != nil {
				return nil, export.Encoding(err)
			}
			lastIndex = idx
		}

		name := fmt.Sprintf(FramePattern, k)
		if err := ws.Write(name, lastPNG); err != nil {
			return nil, export.Encoding(fmt.Errorf("write %s: %w", name, err))
		}
		written = append(written, name)
		job.Report((k + 1) * captureEnd / n)
	}

	job.Encoding()
	args := buildFFmpegArgs(encodeParams{
		Pattern: FramePattern,
		Output:  output,
		FPS:     req.FPS,
		Frames:  n,
		Codec:   codec,
		Quality: req.Quality,
		Filter:  filter,
		Format:  req.Format,
	})
	log.Debug().Strs("args", args).Msg("Encoding video")

	err = ws.Exec(ctx, args, func(p Progress) {
		done := min(int(p.Frame), n)
		if p.Done() {
			done = n
		}
		job.Report(captureEnd + done*(encodeEnd-captureEnd)/n)
	})
	if err != nil {
		return nil, export.Encoding(err)
	}

	data, err = ws.Read(output)
	if err != nil {
		return nil, export.Encoding(fmt.Errorf("read %s: %w", output, err))
	}
	job.Report(readEnd)

	log.Debug().Str("codec", codec).Int("frames", n).Int("bytes", len(data)).Msg("Video encoded")
	return data, nil
}

func encodeFrame(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}
