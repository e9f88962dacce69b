package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// FFmpegEngine runs the ffmpeg binary over a temporary directory.
type FFmpegEngine struct {
	// Binary is the ffmpeg executable name or path. Empty means "ffmpeg".
	Binary string
	// TempDir is where working sets are created. Empty means os.TempDir.
	TempDir string
}

func (e *FFmpegEngine) binary() string {
	if e.Binary == "" {
		return "ffmpeg"
	}
	return e.Binary
}

func (e *FFmpegEngine) Encoders(ctx context.Context) ([]string, error) {
	bin, err := exec.LookPath(e.binary())
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, "-hide_banner", "-encoders")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg -encoders: %w, output: %s", err, lastLines(out, 5))
	}
	return parseEncoders(string(out)), nil
}

// parseEncoders reads the table printed by `ffmpeg -encoders`:
//
//	Encoders:
//	 V..... = Video
//	 ...
//	 ------
//	 V....D libx264              libx264 H.264 / AVC ...
func parseEncoders(out string) []string {
	var names []string
	table := false
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if !table {
			table = strings.HasPrefix(fields[0], "---")
			continue
		}
		if len(fields) < 2 || len(fields[0]) != 6 {
			continue
		}
		names = append(names, fields[1])
	}
	return names
}

func (e *FFmpegEngine) Open(ctx context.Context) (WorkingSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(e.TempDir, "codeanim_")
	if err != nil {
		return nil, err
	}
	return &ffmpegSet{bin: e.binary(), dir: dir}, nil
}

type ffmpegSet struct {
	bin string
	dir string
}

func (s *ffmpegSet) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid working set name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

func (s *ffmpegSet) Write(name string, data []byte) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0644)
}

func (s *ffmpegSet) Read(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (s *ffmpegSet) Delete(names ...string) error {
	var errs []error
	for _, name := range names {
		p, err := s.path(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *ffmpegSet) Close() error {
	return os.RemoveAll(s.dir)
}

// Exec runs ffmpeg inside the working set directory. Progress is read from
// stdout (`-progress pipe:1`), diagnostics from stderr.
func (s *ffmpegSet) Exec(ctx context.Context, args []string, onProgress func(Progress)) error {
	cmd := exec.CommandContext(ctx, s.bin, args...)
	cmd.Dir = s.dir
	cmd.WaitDelay = 5 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	var p Progress
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if ParseProgress(&p, scanner.Text()) && onProgress != nil {
			onProgress(p)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("ffmpeg error: %w, output: %s", err, lastLines(stderr.Bytes(), 10))
	}
	return nil
}

func lastLines(out []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
