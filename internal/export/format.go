package export

import (
	"fmt"
	"strings"
)

// Format is an export target.
type Format string

const (
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatMP4  Format = "mp4"
	FormatWebM Format = "webm"
	FormatSVG  Format = "svg"
)

// Formats lists every supported format.
var Formats = []Format{FormatPNG, FormatGIF, FormatMP4, FormatWebM, FormatSVG}

var mimeTypes = map[Format]string{
	FormatPNG:  "image/png",
	FormatGIF:  "image/gif",
	FormatMP4:  "video/mp4",
	FormatWebM: "video/webm",
	FormatSVG:  "image/svg+xml",
}

// ParseFormat accepts a format name case-insensitively, with or without a
// leading dot.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	if !f.Valid() {
		return "", &Error{Kind: KindUnsupportedFormat, Format: Format(s), Err: fmt.Errorf("unknown format %q", s)}
	}
	return f, nil
}

func (f Format) Valid() bool {
	_, ok := mimeTypes[f]
	return ok
}

// Ext is the canonical file extension, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

func (f Format) MIME() string {
	return mimeTypes[f]
}

// IsVideo reports whether the format goes through the external video engine.
func (f Format) IsVideo() bool {
	return f == FormatMP4 || f == FormatWebM
}

// IsAnimated reports whether the format holds more than one frame.
func (f Format) IsAnimated() bool {
	return f == FormatGIF || f.IsVideo()
}

func (f Format) String() string {
	return string(f)
}
