package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/codeanim/internal/config"
)

// DefaultFileName is used when a request names no file.
const DefaultFileName = "code-animation"

// Request describes one export run. It is owned by that run alone.
type Request struct {
	Format   Format
	FPS      int
	Duration float64
	FileName string
	Timeout  time.Duration

	// Encoder tuning. Zero values pick per-encoder defaults.
	Quality int
	Dither  bool
	Workers int
}

// RequestFromConfig builds a request from the export section of a project
// file.
func RequestFromConfig(cfg config.ExportConfig) (Request, error) {
	f, err := ParseFormat(cfg.Format)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Format:   f,
		FPS:      cfg.FPS,
		Duration: cfg.Duration,
		FileName: cfg.FileName,
		Timeout:  cfg.Timeout,
		Quality:  cfg.Quality,
		Dither:   cfg.Dither,
		Workers:  cfg.Workers,
	}, nil
}

// Validate checks the request before any rendering starts.
func (r Request) Validate() error {
	if !r.Format.Valid() {
		return &Error{Kind: KindUnsupportedFormat, Format: r.Format, Err: fmt.Errorf("unknown format %q", string(r.Format))}
	}
	if r.Format.IsAnimated() && r.FPS <= 0 {
		return &Error{Kind: KindInvalidConfiguration, Format: r.Format, Err: fmt.Errorf("%w: fps must be positive, got %d", config.ErrInvalidConfig, r.FPS)}
	}
	if r.Format.IsVideo() {
		if math.IsNaN(r.Duration) || math.IsInf(r.Duration, 0) || r.Duration <= 0 {
			return &Error{Kind: KindInvalidConfiguration, Format: r.Format, Err: fmt.Errorf("%w: duration must be positive, got %v", config.ErrInvalidConfig, r.Duration)}
		}
		if n := float64(r.FPS) * r.Duration; n < 1 || n > MaxVideoFrames {
			return &Error{Kind: KindInvalidConfiguration, Format: r.Format, Err: fmt.Errorf("%w: %d fps over %vs gives %.0f frames", config.ErrInvalidConfig, r.FPS, r.Duration, math.Floor(n))}
		}
	}
	if r.Timeout < 0 {
		return &Error{Kind: KindInvalidConfiguration, Format: r.Format, Err: fmt.Errorf("%w: negative timeout", config.ErrInvalidConfig)}
	}
	return nil
}

// MaxVideoFrames bounds fps*duration for video exports.
const MaxVideoFrames = 100000

// VideoFrames is the number of frames a video export renders.
func (r Request) VideoFrames() int {
	return int(math.Floor(float64(r.FPS) * r.Duration))
}

// OutputName is the artifact file name: the requested base name with path
// separators removed, plus the format extension.
func (r Request) OutputName() string {
	name := strings.Map(func(c rune) rune {
		if c == '/' || c == '\\' || c == os.PathSeparator {
			return -1
		}
		return c
	}, r.FileName)
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, r.Format.Ext())
	if name == "" || name == "." || name == ".." {
		name = DefaultFileName
	}
	return name + r.Format.Ext()
}

// Result is a finished artifact.
type Result struct {
	Data     []byte
	Format   Format
	MIME     string
	FileName string
	Stats    Stats
}

// WriteTo saves the artifact under dir and returns its path.
func (r *Result) WriteTo(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, r.FileName)
	if err := os.WriteFile(path, r.Data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Stats are per-phase timings of one run.
type Stats struct {
	Frames   int
	Prepare  time.Duration
	Render   time.Duration
	Encode   time.Duration
	Finalize time.Duration
	Total    time.Duration
}

// Report formats the stats as a performance report.
func (s Stats) Report(r *Result) string {
	fps := 0.0
	if s.Total > 0 {
		fps = float64(s.Frames) / s.Total.Seconds()
	}
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Output: %s (%s, %d bytes)\n"+
			"Frames: %d\n"+
			"Total Time: %.2fs\n"+
			"Preparing: %.2fs\n"+
			"Rendering: %.2fs\n"+
			"Encoding: %.2fs\n"+
			"Finalizing: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		r.FileName, r.MIME, len(r.Data), s.Frames,
		s.Total.Seconds(), s.Prepare.Seconds(), s.Render.Seconds(), s.Encode.Seconds(), s.Finalize.Seconds(), fps,
	)
}
