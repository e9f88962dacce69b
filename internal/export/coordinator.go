// Package export drives one export run from frames to artifact bytes. The
// coordinator owns the life cycle and cleanup; format encoders plug in
// through Encoder.
package export

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/codeanim/internal/animation"
	"github.com/ivlev/codeanim/internal/capture"
	"github.com/ivlev/codeanim/internal/config"
	"github.com/ivlev/codeanim/internal/logger"
)

// Coordinator selects an encoder per format and runs exports. A Coordinator
// is safe for concurrent use; every run opens its own surface.
type Coordinator struct {
	adapter  capture.Adapter
	encoders map[Format]Encoder
	nextID   atomic.Uint64
}

// NewCoordinator registers one encoder per format. Formats without an
// encoder fail with KindUnsupportedFormat.
func NewCoordinator(adapter capture.Adapter, encoders map[Format]Encoder) *Coordinator {
	m := make(map[Format]Encoder, len(encoders))
	for f, e := range encoders {
		if e != nil {
			m[f] = e
		}
	}
	return &Coordinator{adapter: adapter, encoders: m}
}

// Supports reports whether an encoder is registered for f.
func (c *Coordinator) Supports(f Format) bool {
	_, ok := c.encoders[f]
	return ok
}

// Probe runs the capability probe for f, if its encoder has one.
func (c *Coordinator) Probe(ctx context.Context, f Format) error {
	enc, ok := c.encoders[f]
	if !ok {
		return &Error{Kind: KindUnsupportedFormat, Format: f, Err: errors.New("no encoder registered")}
	}
	p, ok := enc.(Prober)
	if !ok {
		return nil
	}
	if err := p.Probe(ctx, f); err != nil {
		return classify(ctx, f, err, KindCapabilityUnavailable)
	}
	return nil
}

// Run is one export in flight.
type Run struct {
	id       uint64
	progress chan int
	done     chan struct{}

	state atomic.Int32

	mu   sync.Mutex
	last int

	result *Result
	err    error
}

// Progress yields non-decreasing percentages in [0, 100] and is closed when
// the run ends. 100 is sent only on success. Reading it is optional.
func (r *Run) Progress() <-chan int {
	return r.progress
}

// Done is closed once the run has a result.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run ends. Exactly one of the return values is nil.
func (r *Run) Wait() (*Result, error) {
	<-r.done
	return r.result, r.err
}

// State is the run's current life-cycle state.
func (r *Run) State() State {
	return State(r.state.Load())
}

func (r *Run) report(p int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p <= r.last {
		return
	}
	r.last = p
	// at most 101 distinct values reach the channel, which holds 101
	r.progress <- p
}

// Start launches an export in the background.
func (c *Coordinator) Start(ctx context.Context, frames []animation.Frame, req Request) *Run {
	r := &Run{
		id:       c.nextID.Add(1),
		progress: make(chan int, 101),
		done:     make(chan struct{}),
		last:     -1,
	}
	go func() {
		defer close(r.done)
		defer close(r.progress)
		r.result, r.err = c.execute(ctx, r, frames, req)
	}()
	return r
}

// Export runs an export to completion. onProgress may be nil.
func (c *Coordinator) Export(ctx context.Context, frames []animation.Frame, req Request, onProgress func(int)) (*Result, error) {
	run := c.Start(ctx, frames, req)
	for p := range run.Progress() {
		if onProgress != nil {
			onProgress(p)
		}
	}
	return run.Wait()
}

type phaseClock struct {
	start time.Time
	mark  time.Time
	spent map[State]time.Duration
}

func newPhaseClock() *phaseClock {
	now := time.Now()
	return &phaseClock{start: now, mark: now, spent: make(map[State]time.Duration)}
}

func (p *phaseClock) leave(s State) {
	now := time.Now()
	p.spent[s] += now.Sub(p.mark)
	p.mark = now
}

func (c *Coordinator) execute(ctx context.Context, run *Run, frames []animation.Frame, req Request) (res *Result, err error) {
	log := logger.WithComponent("export").With().
		Uint64("run", run.id).
		Str("format", string(req.Format)).
		Logger()

	clock := newPhaseClock()
	var mu sync.Mutex
	setState := func(s State) {
		mu.Lock()
		defer mu.Unlock()
		cur := run.State()
		if cur.Terminal() || s <= cur {
			return
		}
		clock.leave(cur)
		run.state.Store(int32(s))
		log.Debug().Str("state", s.String()).Msg("Export state changed")
	}

	defer func() {
		if err != nil {
			setState(StateFailed)
			log.Error().Err(err).Stringer("kind", KindOf(err)).Msg("Export failed")
		}
	}()

	// a panicking adapter or encoder still ends the run with one failure
	panicKind := KindEncoding
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("stack", string(debug.Stack())).Msg("Recovered from panic")
			res = nil
			err = &Error{Kind: panicKind, Format: req.Format, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	setState(StatePreparing)
	run.report(0)

	if err := req.Validate(); err != nil {
		return nil, classify(ctx, req.Format, err, KindInvalidConfiguration)
	}
	enc, ok := c.encoders[req.Format]
	if !ok {
		return nil, &Error{Kind: KindUnsupportedFormat, Format: req.Format, Err: errors.New("no encoder registered")}
	}
	if len(frames) == 0 {
		return nil, &Error{Kind: KindInvalidConfiguration, Format: req.Format, Err: fmt.Errorf("%w: no frames to export", config.ErrInvalidConfig)}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, req.Format, err, KindCanceled)
	}

	if p, ok := enc.(Prober); ok {
		if err := p.Probe(ctx, req.Format); err != nil {
			return nil, classify(ctx, req.Format, err, KindCapabilityUnavailable)
		}
	}

	setState(StateRendering)
	panicKind = KindRasterization
	surface, err := c.adapter.Open(ctx)
	if err != nil {
		return nil, classify(ctx, req.Format, err, KindRasterization)
	}
	panicKind = KindEncoding
	closed := false
	closeSurface := func() {
		if closed {
			return
		}
		closed = true
		if cerr := surface.Close(); cerr != nil {
			cleanup := &Error{Kind: KindResourceCleanup, Format: req.Format, Err: cerr}
			log.Warn().Err(cleanup).Msg("Cleanup failed")
		}
	}
	defer closeSurface()

	job := &Job{
		Frames:  frames,
		Request: req,
		Surface: surface,
		report:  run.report,
		enter:   setState,
	}

	log.Info().Int("frames", len(frames)).Msg("Export started")
	data, err := enc.Encode(ctx, job)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, classify(ctx, req.Format, err, KindEncoding)
	}
	if len(data) == 0 {
		return nil, &Error{Kind: KindEncoding, Format: req.Format, Err: errors.New("encoder produced no data")}
	}

	setState(StateFinalizing)
	closeSurface()

	res = &Result{
		Data:     data,
		Format:   req.Format,
		MIME:     req.Format.MIME(),
		FileName: req.OutputName(),
	}

	setState(StateDone)
	res.Stats = Stats{
		Frames:   job.Rasterized(),
		Prepare:  clock.spent[StatePreparing],
		Render:   clock.spent[StateRendering],
		Encode:   clock.spent[StateEncoding],
		Finalize: clock.spent[StateFinalizing],
		Total:    time.Since(clock.start),
	}
	run.report(100)

	logEvent(log.Info(), res).Msg("Export finished")
	return res, nil
}

func logEvent(e *zerolog.Event, res *Result) *zerolog.Event {
	return e.Str("file", res.FileName).
		Int("bytes", len(res.Data)).
		Int("rasterized", res.Stats.Frames).
		Dur("total", res.Stats.Total)
}
