package export

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/ivlev/codeanim/internal/animation"
	"github.com/ivlev/codeanim/internal/capture"
)

// State is a step of the export life cycle.
type State int32

const (
	StateIdle State = iota
	StatePreparing
	StateRendering
	StateEncoding
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateRendering:
		return "rendering"
	case StateEncoding:
		return "encoding"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Encoder turns frames into artifact bytes. Implementations rasterize only
// through job.Surface and report progress through job.Report.
type Encoder interface {
	Encode(ctx context.Context, job *Job) ([]byte, error)
}

// Prober is implemented by encoders that depend on an external engine. Probe
// runs before any frame is rasterized.
type Prober interface {
	Probe(ctx context.Context, f Format) error
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(ctx context.Context, job *Job) ([]byte, error)

func (f EncoderFunc) Encode(ctx context.Context, job *Job) ([]byte, error) {
	return f(ctx, job)
}

// Job is what an encoder gets for one run.
type Job struct {
	Frames  []animation.Frame
	Request Request
	Surface capture.Surface

	report func(int)
	enter  func(State)

	rasterized atomic.Int64
}

// Report forwards encoder progress. Values are clamped to [0, 99]; 100 is
// reserved for a successful run. Lower values than already reported are
// dropped.
func (j *Job) Report(percent int) {
	if j.report == nil {
		return
	}
	j.report(min(max(percent, 0), 99))
}

// Encoding marks the switch from rasterizing frames to assembling the
// container.
func (j *Job) Encoding() {
	if j.enter != nil {
		j.enter(StateEncoding)
	}
}

// Last is the final frame, the one a still export shows.
func (j *Job) Last() string {
	if len(j.Frames) == 0 {
		return ""
	}
	return string(j.Frames[len(j.Frames)-1])
}

// MeasureMax measures every frame and returns the largest box seen.
func (j *Job) MeasureMax(ctx context.Context, onEach func(i int)) (image.Point, error) {
	box, err := capture.MeasureMax(ctx, j.Surface, j.Texts(), onEach)
	if err != nil {
		return image.Point{}, Rasterization(err)
	}
	return box, nil
}

// Rasterize draws one frame, tagging failures as rasterization errors.
func (j *Job) Rasterize(ctx context.Context, t capture.Target) (*capture.Raster, error) {
	r, err := j.Surface.Rasterize(ctx, t)
	if err != nil {
		return nil, Rasterization(err)
	}
	j.rasterized.Add(1)
	return r, nil
}

// Rasterized counts successful Rasterize calls.
func (j *Job) Rasterized() int {
	return int(j.rasterized.Load())
}

// Texts returns the frames as plain strings.
func (j *Job) Texts() []string {
	return animation.Strings(j.Frames)
}

// NewJob builds a job outside a coordinator, for driving an encoder directly.
func NewJob(frames []animation.Frame, req Request, s capture.Surface, report func(int)) *Job {
	return &Job{Frames: frames, Request: req, Surface: s, report: report}
}
