package video

import (
	"strconv"
	"strings"
	"unicode"
)

// Progress is one block of `ffmpeg -progress` output.
type Progress struct {
	Frame      int64
	FPS        float32
	BitRate    float32
	TotalSize  int64
	OutTimeUS  int64
	OutTime    string
	DupFrames  int64
	DropFrames int64
	Speed      float32
	Progress   string
}

// Done reports whether this was the last block.
func (p Progress) Done() bool {
	return p.Progress == "end"
}

// ParseProgress parses one `key=value` progress line into p. It returns true
// on the `progress=` line that closes a block.
//
// Example block:
// frame=241
// fps=79.81
// bitrate= 107.1kbits/s
// total_size=116071
// out_time_us=8674000
// out_time=00:00:08.674000
// dup_frames=0
// drop_frames=0
// speed=2.87x
// progress=continue
func ParseProgress(p *Progress, line string) bool {
	name, rawValue, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return false
	}
	value := strings.TrimFunc(rawValue, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	i64, _ := strconv.ParseInt(value, 10, 64)
	f64, _ := strconv.ParseFloat(value, 64)
	f32 := float32(f64)

	switch name {
	case "frame":
		p.Frame = i64
	case "fps":
		p.FPS = f32
	case "bitrate":
		var scale float32 = 1.0
		if strings.HasSuffix(rawValue, "kbits/s") {
			scale = 1000.0
		}
		p.BitRate = f32 * scale
	case "total_size":
		p.TotalSize = i64
	case "out_time_us":
		p.OutTimeUS = i64
	case "out_time":
		p.OutTime = rawValue
	case "dup_frames":
		p.DupFrames = i64
	case "drop_frames":
		p.DropFrames = i64
	case "speed":
		p.Speed = f32
	case "progress":
		p.Progress = rawValue
	}

	return name == "progress"
}
