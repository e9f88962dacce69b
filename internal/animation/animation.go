// Package animation turns source text into typing frames.
package animation

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ivlev/codeanim/internal/config"
)

// MaxFrames caps the frames a generation with pauses may produce.
const MaxFrames = 1 << 22

// Frame is the text revealed so far.
type Frame string

// PauseFrames is the number of repeated frames a pause inserts.
func PauseFrames(cfg config.AnimationConfig) int {
	if cfg.Speed <= 0 {
		return 0
	}
	n := math.Floor(float64(cfg.PauseDuration) / cfg.Speed)
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// pauseLines returns the distinct pause lines inside [0, lineCount).
func pauseLines(cfg config.AnimationConfig, lineCount int) map[int]bool {
	at := make(map[int]bool, len(cfg.PauseLines))
	for _, l := range cfg.PauseLines {
		if l >= 0 && l < lineCount {
			at[l] = true
		}
	}
	return at
}

// frameCount is the number of frames for lines with the given pauses. It
// reports false when the pauses push the total past MaxFrames; text alone is
// never rejected.
func frameCount(lines []string, pauses, perPause int) (int, bool) {
	n := len(lines) - 1
	for _, line := range lines {
		n += utf8.RuneCountInString(line)
	}
	if pauses > 0 && perPause > 0 {
		if perPause > (MaxFrames-n)/pauses {
			return MaxFrames + 1, false
		}
		n += pauses * perPause
	}
	return max(n, 1), true
}

// Generate splits text into lines and reveals it one character at a time.
//
// A pause on line i repeats the current frame before the first character of
// that line. The line break after each line except the last is pushed as its
// own frame, so the last frame is always exactly text.
func Generate(text string, cfg config.AnimationConfig) ([]Frame, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lines := strings.Split(text, "\n")
	pauseAt := pauseLines(cfg, len(lines))
	pause := PauseFrames(cfg)
	total, ok := frameCount(lines, len(pauseAt), pause)
	if !ok {
		return nil, fmt.Errorf("%w: %d pauses of %dms at speed %v need more than %d frames",
			config.ErrInvalidConfig, len(pauseAt), cfg.PauseDuration, cfg.Speed, MaxFrames)
	}

	frames := make([]Frame, 0, total)
	var acc strings.Builder
	acc.Grow(len(text))

	for i, line := range lines {
		if pauseAt[i] {
			current := Frame(acc.String())
			for n := 0; n < pause; n++ {
				frames = append(frames, current)
			}
		}

		for rest := line; rest != ""; {
			_, w := utf8.DecodeRuneInString(rest)
			acc.WriteString(rest[:w])
			rest = rest[w:]
			frames = append(frames, Frame(acc.String()))
		}

		if i < len(lines)-1 {
			acc.WriteByte('\n')
			frames = append(frames, Frame(acc.String()))
		}
	}

	if len(frames) == 0 {
		frames = append(frames, "")
	}
	return frames, nil
}

// Count returns how many frames Generate produces without building them.
// It returns 0 when Generate would fail.
func Count(text string, cfg config.AnimationConfig) int {
	if cfg.Validate() != nil {
		return 0
	}
	lines := strings.Split(text, "\n")
	n, ok := frameCount(lines, len(pauseLines(cfg, len(lines))), PauseFrames(cfg))
	if !ok {
		return 0
	}
	return n
}

// Strings converts frames for callers that work with plain strings.
func Strings(frames []Frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = string(f)
	}
	return out
}
