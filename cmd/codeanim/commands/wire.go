package commands

import (
	"image/png"

	"github.com/ivlev/codeanim/internal/animated"
	"github.com/ivlev/codeanim/internal/capture"
	"github.com/ivlev/codeanim/internal/config"
	"github.com/ivlev/codeanim/internal/export"
	"github.com/ivlev/codeanim/internal/still"
	"github.com/ivlev/codeanim/internal/video"
)

// newCoordinator registers an encoder for every supported format.
func newCoordinator(cfg *config.Config, adapter capture.Adapter) *export.Coordinator {
	vid := video.New(&video.FFmpegEngine{Binary: cfg.Export.FFmpeg}, cfg.Export.Hardware)
	return export.NewCoordinator(adapter, map[export.Format]export.Encoder{
		export.FormatPNG:  &still.PNGEncoder{Compression: png.DefaultCompression},
		export.FormatSVG:  &still.SVGEncoder{},
		export.FormatGIF:  &animated.Encoder{Workers: cfg.Export.Workers},
		export.FormatMP4:  vid,
		export.FormatWebM: vid,
	})
}
