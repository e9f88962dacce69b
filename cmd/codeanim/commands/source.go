package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/ivlev/codeanim/internal/config"
	"github.com/ivlev/codeanim/internal/system"
)

// defaultInputDir is searched for the newest snippet when no file is given.
const defaultInputDir = "input/code"

// readSource returns the snippet text and the language to highlight it as.
// "-" reads stdin; no argument picks the newest file in input/code and
// reports the choice on status.
func readSource(args []string, stdin io.Reader, status io.Writer, cfg *config.Config) (string, string, error) {
	var path string
	switch {
	case len(args) > 0:
		path = args[0]
	default:
		latest, err := system.FindLatestSource(defaultInputDir)
		if err != nil {
			return "", "", fmt.Errorf("%w; передайте файл или положите его в %s/", err, defaultInputDir)
		}
		path = latest
		fmt.Fprintf(status, "[*] Выбран файл: %s\n", path)
	}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to read source: %w", err)
	}

	language := cfg.Language
	if path != "-" && !viper.IsSet("language") {
		if l := system.LanguageFor(path); l != "" {
			language = l
		}
	}
	return string(data), language, nil
}
