package video

import (
	"fmt"
	"image"
	"image/color"
	"slices"
	"strconv"

	"github.com/ivlev/codeanim/internal/export"
)

const (
	codecX264         = "libx264"
	codecVP9          = "libvpx-vp9"
	codecVideoToolbox = "h264_videotoolbox"
	codecNVENC        = "h264_nvenc"
)

// hardwareH264 is the order hardware H.264 encoders are preferred in.
var hardwareH264 = []string{codecVideoToolbox, codecNVENC}

// selectCodec picks the encoder for a container from what the engine offers.
func selectCodec(f export.Format, available []string, hardware bool) (string, error) {
	switch f {
	case export.FormatMP4:
		if hardware {
			for _, hw := range hardwareH264 {
				if slices.Contains(available, hw) {
					return hw, nil
				}
			}
		}
		if slices.Contains(available, codecX264) {
			return codecX264, nil
		}
		return "", fmt.Errorf("no H.264 encoder available (need %s)", codecX264)
	case export.FormatWebM:
		if slices.Contains(available, codecVP9) {
			return codecVP9, nil
		}
		return "", fmt.Errorf("no VP9 encoder available (need %s)", codecVP9)
	}
	return "", fmt.Errorf("%s is not a video format", f)
}

// qualityArgs maps the quality knob onto each encoder's rate control. Zero
// picks the encoder's usual default.
func qualityArgs(codec string, quality int) []string {
	switch codec {
	case codecVideoToolbox:
		if quality <= 0 {
			quality = 75 // Хорошее качество для VideoToolbox
		}
		bitrate := quality * 100 // kbit/s, 75 -> 7.5 Mbit/s
		return []string{"-b:v", fmt.Sprintf("%dk", bitrate)}
	case codecNVENC:
		if quality <= 0 {
			quality = 23 // Эквивалент CRF для NVENC
		}
		return []string{"-cq", strconv.Itoa(quality)}
	case codecVP9:
		if quality <= 0 {
			quality = 31
		}
		return []string{"-b:v", "0", "-crf", strconv.Itoa(quality), "-row-mt", "1"}
	default: // libx264
		if quality <= 0 {
			quality = 23 // Стандартный CRF для x264
		}
		return []string{"-crf", strconv.Itoa(quality), "-preset", "medium"}
	}
}

// evenPadFilter pads the frame right and bottom to even dimensions, as
// yuv420p requires. It returns "" when size is already even.
func evenPadFilter(size image.Point, bg color.RGBA) string {
	w, h := size.X+size.X%2, size.Y+size.Y%2
	if w == size.X && h == size.Y {
		return ""
	}
	return fmt.Sprintf("pad=%d:%d:0:0:color=0x%02x%02x%02x", w, h, bg.R, bg.G, bg.B)
}

type encodeParams struct {
	Pattern string
	Output  string
	FPS     int
	Frames  int
	Codec   string
	Quality int
	Filter  string
	Format  export.Format
}

func buildFFmpegArgs(p encodeParams) []string {
	fps := strconv.Itoa(p.FPS)
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-progress", "pipe:1",
		"-framerate", fps,
		"-i", p.Pattern,
	}
	if p.Filter != "" {
		args = append(args, "-vf", p.Filter)
	}
	args = append(args,
		"-frames:v", strconv.Itoa(p.Frames),
		"-r", fps,
		"-pix_fmt", "yuv420p",
		"-c:v", p.Codec,
	)
	args = append(args, qualityArgs(p.Codec, p.Quality)...)
	if p.Format == export.FormatMP4 {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, p.Output)
	return args
}
