package commands

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/codeanim/internal/capture"
	"github.com/ivlev/codeanim/internal/config"
	"github.com/ivlev/codeanim/internal/export"
	"github.com/ivlev/codeanim/internal/still"
	"github.com/ivlev/codeanim/internal/video"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestApplyOverrides(t *testing.T) {
	resetViper(t)
	viper.Set("format", "gif")
	viper.Set("fps", 12)
	viper.Set("pause-lines", []int{1, 3})
	viper.Set("background", "#000000")
	viper.Set("timeout", "30s")
	viper.Set("dither", true)

	cfg := config.Default()
	applyOverrides(cfg)

	assert.Equal(t, "gif", cfg.Export.Format)
	assert.Equal(t, 12, cfg.Export.FPS)
	assert.Equal(t, []int{1, 3}, cfg.Animation.PauseLines)
	assert.Equal(t, "#000000", cfg.Theme.Background)
	assert.Equal(t, 30*time.Second, cfg.Export.Timeout)
	assert.True(t, cfg.Export.Dither)

	// untouched keys keep their defaults
	assert.Equal(t, config.Default().Export.Duration, cfg.Export.Duration)
	assert.Equal(t, config.Default().Theme.Style, cfg.Theme.Style)
}

func TestApplyOverridesFromEnvironment(t *testing.T) {
	resetViper(t)
	initConfig()
	t.Setenv("CODEANIM_FONT_SIZE", "22")

	cfg := config.Default()
	applyOverrides(cfg)
	assert.Equal(t, 22.0, cfg.Theme.FontSize)
}

func TestReadSourceFromFile(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "hello.py")
	require.NoError(t, os.WriteFile(path, []byte("print('hi')\n"), 0644))

	text, lang, err := readSource([]string{path}, nil, io.Discard, config.Default())
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", text)
	assert.Equal(t, "python", lang)
}

func TestReadSourceLanguageFlagWins(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "hello.py")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	cfg := config.Default()
	viper.Set("language", "ruby")
	applyOverrides(cfg)

	_, lang, err := readSource([]string{path}, nil, io.Discard, cfg)
	require.NoError(t, err)
	assert.Equal(t, "ruby", lang)
}

func TestReadSourceFromStdin(t *testing.T) {
	resetViper(t)
	cfg := config.Default()
	text, lang, err := readSource([]string{"-"}, strings.NewReader("let a = 1"), io.Discard, cfg)
	require.NoError(t, err)
	assert.Equal(t, "let a = 1", text)
	assert.Equal(t, cfg.Language, lang)
}

func TestReadSourcePicksNewestInput(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	inputs := filepath.Join(dir, defaultInputDir)
	require.NoError(t, os.MkdirAll(inputs, 0755))
	old := filepath.Join(inputs, "old.py")
	require.NoError(t, os.WriteFile(old, []byte("x = 1"), 0644))
	require.NoError(t, os.Chtimes(old, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))
	require.NoError(t, os.WriteFile(filepath.Join(inputs, "new.go"), []byte("package x"), 0644))
	t.Chdir(dir)

	var status bytes.Buffer
	text, lang, err := readSource(nil, nil, &status, config.Default())
	require.NoError(t, err)
	assert.Equal(t, "package x", text)
	assert.Equal(t, "go", lang)
	assert.Equal(t, "[*] Выбран файл: "+filepath.Join(defaultInputDir, "new.go")+"\n", status.String())
}

func TestReadSourceMissingFile(t *testing.T) {
	resetViper(t)
	_, _, err := readSource([]string{filepath.Join(t.TempDir(), "nope.go")}, nil, io.Discard, config.Default())
	assert.Error(t, err)
}

func TestNewCoordinatorSupportsEveryFormat(t *testing.T) {
	cfg := config.Default()
	r, err := capture.NewTextRasterizer(cfg.Theme, cfg.Language)
	require.NoError(t, err)

	coord := newCoordinator(cfg, r)
	for _, f := range export.Formats {
		assert.True(t, coord.Supports(f), f)
	}
}

func TestRenderCommandWritesSVG(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0644))

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"render", path, "-f", "svg", "--stdout", "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "<svg xmlns=")
	assert.Contains(t, out.String(), "<title>code-animation.svg</title>")
	assert.Contains(t, errOut.String(), "100%")
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.yaml")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"init", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Export, cfg.Export)

	// refuses to overwrite
	rootCmd.SetArgs([]string{"init", path})
	assert.Error(t, rootCmd.Execute())
}

func TestProbeTable(t *testing.T) {
	coord := export.NewCoordinator(nil, map[export.Format]export.Encoder{
		export.FormatPNG: &still.PNGEncoder{},
		export.FormatMP4: video.New(&video.FFmpegEngine{Binary: "codeanim-no-such-ffmpeg"}, false),
	})

	var out bytes.Buffer
	require.NoError(t, writeProbeTable(context.Background(), &out, coord))

	rows := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n")[1:] {
		fields := strings.Fields(line)
		rows[fields[0]] = strings.Join(fields[2:], " ")
	}
	assert.Equal(t, "ok", rows["png"])
	assert.Equal(t, "no encoder", rows["svg"])
	assert.Equal(t, "no encoder", rows["gif"])
	assert.Contains(t, rows["mp4"], "capability unavailable")
}
