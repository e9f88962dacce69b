package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks every configuration error, whichever package detected it.
var ErrInvalidConfig = errors.New("invalid configuration")

// AnimationConfig controls how source text is split into typing frames.
type AnimationConfig struct {
	Speed         float64 `yaml:"speed"`          // frames per second of the preview
	PauseLines    []int   `yaml:"pause_lines"`    // zero-based line indices
	PauseDuration int     `yaml:"pause_duration"` // milliseconds
}

// Validate rejects settings that would make frame generation loop forever or divide by zero.
func (a AnimationConfig) Validate() error {
	if math.IsNaN(a.Speed) || math.IsInf(a.Speed, 0) || a.Speed <= 0 {
		return fmt.Errorf("%w: speed must be a positive number, got %v", ErrInvalidConfig, a.Speed)
	}
	if a.PauseDuration < 0 {
		return fmt.Errorf("%w: pause duration must not be negative, got %dms", ErrInvalidConfig, a.PauseDuration)
	}
	return nil
}

// FrameInterval is the time one frame stays on screen during preview playback.
func (a AnimationConfig) FrameInterval() time.Duration {
	if a.Speed <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / a.Speed)
}

// Theme is the visual style handed to the rasterizer and the highlighter.
type Theme struct {
	Style      string  `yaml:"style"`      // chroma style name
	Background string  `yaml:"background"` // "#rrggbb", empty = style background
	Foreground string  `yaml:"foreground"` // "#rrggbb", empty = style text color
	FontSize   float64 `yaml:"font_size"`  // points
	DPI        float64 `yaml:"dpi"`
	LineHeight float64 `yaml:"line_height"` // multiple of FontSize
	Padding    int     `yaml:"padding"`     // pixels
	TabWidth   int     `yaml:"tab_width"`
	Badge      string  `yaml:"badge"` // QR payload drawn in the corner, empty = none
}

// ExportConfig holds defaults for export requests.
type ExportConfig struct {
	Format    string        `yaml:"format"`
	FPS       int           `yaml:"fps"`
	Duration  float64       `yaml:"duration"` // seconds
	FileName  string        `yaml:"file_name"`
	OutputDir string        `yaml:"output_dir"`
	Timeout   time.Duration `yaml:"timeout"`
	Workers   int           `yaml:"workers"`
	Quality   int           `yaml:"quality"` // 0 = encoder default
	Dither    bool          `yaml:"dither"`
	Hardware  bool          `yaml:"hardware"` // prefer a hardware H.264 encoder
	FFmpeg    string        `yaml:"ffmpeg"`
}

type Config struct {
	Language  string          `yaml:"language"`
	Animation AnimationConfig `yaml:"animation"`
	Theme     Theme           `yaml:"theme"`
	Export    ExportConfig    `yaml:"export"`
	LogLevel  string          `yaml:"log_level"`
	ShowStats bool            `yaml:"show_stats"`
}

// Default mirrors the settings the editor starts with.
func Default() *Config {
	return &Config{
		Language: "javascript",
		Animation: AnimationConfig{
			Speed:         5,
			PauseLines:    []int{},
			PauseDuration: 500,
		},
		Theme: Theme{
			Style:      "github",
			Background: "#f0f0f0",
			FontSize:   14,
			DPI:        72,
			LineHeight: 1.5,
			Padding:    20,
			TabWidth:   4,
		},
		Export: ExportConfig{
			Format:    "png",
			FPS:       30,
			Duration:  5,
			FileName:  "code-animation",
			OutputDir: "output",
			FFmpeg:    "ffmpeg",
		},
		LogLevel: "info",
	}
}

// Load reads a YAML project file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Animation.PauseLines == nil {
		cfg.Animation.PauseLines = []int{}
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating the parent directory.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
