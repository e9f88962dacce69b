// Package system sizes work to the host and finds input files.
package system

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ivlev/codeanim/internal/logger"
)

// InitResourceLimits пытается увеличить лимит открытых файлов (для macOS/Linux):
// видео-экспорт держит по файлу на кадр в рабочем каталоге.
func InitResourceLimits() {
	log := logger.WithComponent("system")

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn().Err(err).Msg("[!] Не удалось получить лимит файлов")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn().Err(err).Msg("[!] Не удалось установить лимит файлов")
		return
	}
	log.Debug().Uint64("limit", uint64(rLimit.Cur)).Msg("[*] Системный лимит открытых файлов увеличен")
}

// DefaultWorkers is the number of logical CPUs, or runtime.NumCPU when the
// host cannot be queried.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// AvailableMemory is the memory the host reports as available, in bytes.
// Zero means unknown.
func AvailableMemory() uint64 {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return v.Available
}

// FrameWindow is how many frames of frameBytes each can be held at once,
// using at most a quarter of available memory. It is never below workers
// and never above total.
func FrameWindow(frameBytes, workers, total int) int {
	window := total
	if avail := AvailableMemory(); avail > 0 && frameBytes > 0 {
		window = int(min(avail/4/uint64(frameBytes), uint64(total)))
	}
	return max(min(window, total), min(workers, total), 1)
}

// SourceExtensions are the file types FindLatestSource considers.
var SourceExtensions = []string{
	".go", ".js", ".jsx", ".ts", ".tsx", ".py", ".rb", ".rs", ".java", ".kt",
	".c", ".h", ".cpp", ".cs", ".php", ".swift", ".sh", ".sql", ".html", ".css",
	".json", ".yaml", ".yml", ".md", ".txt",
}

// FindLatestSource возвращает самый свежий файл с исходным кодом в папке dir.
func FindLatestSource(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !isSource(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено файлов с исходным кодом", dir)
	}
	return latestFile, nil
}

func isSource(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LanguageFor guesses a highlighter language name from a file extension.
func LanguageFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".js", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".py":
		return "python"
	case ".rb":
		return "ruby"
	case ".rs":
		return "rust"
	case ".sh":
		return "bash"
	case ".yml", ".yaml":
		return "yaml"
	case ".md":
		return "markdown"
	case "", ".txt":
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
