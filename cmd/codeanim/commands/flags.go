package commands

import (
	"github.com/spf13/cobra"
)

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("language", "", "language of the snippet (default: from file extension, then config)")
	cmd.Flags().Float64("speed", 0, "typing speed in frames per second")
	cmd.Flags().IntSlice("pause-lines", nil, "zero-based lines to pause before")
	cmd.Flags().Int("pause-duration", 0, "pause length in milliseconds")
}

func addRenderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("format", "f", "", "png, svg, gif, mp4 or webm")
	f.Int("fps", 0, "output frame rate")
	f.Float64("duration", 0, "video length in seconds")
	f.StringP("name", "n", "", "output file name without extension")
	f.StringP("out-dir", "o", "", "output directory")
	f.Duration("timeout", 0, "abort the export after this long (0 = no limit)")
	f.Int("workers", 0, "parallel GIF quantization workers (0 = all CPUs)")
	f.Int("quality", 0, "video quality (0 = encoder default; x264/VP9: CRF, VideoToolbox: bitrate = Q*100 kbit/s)")
	f.Bool("dither", false, "Floyd-Steinberg dithering for GIF")
	f.Bool("hardware", false, "prefer a hardware H.264 encoder for MP4")
	f.String("ffmpeg", "", "ffmpeg binary")
	f.Bool("stats", false, "print a performance report")
	f.Bool("stdout", false, "write the artifact to stdout instead of a file")

	f.String("style", "", "chroma style name")
	f.String("background", "", "background color #rrggbb")
	f.String("foreground", "", "text color #rrggbb")
	f.Float64("font-size", 0, "font size in points")
	f.Int("padding", 0, "padding in pixels")
	f.String("badge", "", "draw a QR code of this text in the corner")
}
