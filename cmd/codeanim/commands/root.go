package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ivlev/codeanim/internal/config"
	"github.com/ivlev/codeanim/internal/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "codeanim",
		Short: "codeanim - typing animations of source code",
		Long: `codeanim turns a snippet of source code into a typing animation and
exports it as a still image (PNG, SVG), an animated GIF or a video (MP4, WebM).

Settings come from, in increasing priority: built-in defaults, a YAML project
file (--config), CODEANIM_* environment variables and command line flags.`,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML project file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", true, "human-readable log output")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("pretty", rootCmd.PersistentFlags().Lookup("pretty"))
}

func initConfig() {
	viper.SetEnvPrefix("CODEANIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the project file, if any, and applies environment and
// flag overrides on top. It also configures logging.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	applyOverrides(cfg)
	logger.Init(cfg.LogLevel, viper.GetBool("pretty"))

	if err := cfg.Animation.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	setString := func(key string, dst *string) {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if viper.IsSet(key) {
			*dst = viper.GetInt(key)
		}
	}
	setFloat := func(key string, dst *float64) {
		if viper.IsSet(key) {
			*dst = viper.GetFloat64(key)
		}
	}
	setBool := func(key string, dst *bool) {
		if viper.IsSet(key) {
			*dst = viper.GetBool(key)
		}
	}

	setString("log-level", &cfg.LogLevel)
	setString("language", &cfg.Language)

	setFloat("speed", &cfg.Animation.Speed)
	setInt("pause-duration", &cfg.Animation.PauseDuration)
	if viper.IsSet("pause-lines") {
		cfg.Animation.PauseLines = viper.GetIntSlice("pause-lines")
	}

	setString("style", &cfg.Theme.Style)
	setString("background", &cfg.Theme.Background)
	setString("foreground", &cfg.Theme.Foreground)
	setFloat("font-size", &cfg.Theme.FontSize)
	setInt("padding", &cfg.Theme.Padding)
	setString("badge", &cfg.Theme.Badge)

	setString("format", &cfg.Export.Format)
	setInt("fps", &cfg.Export.FPS)
	setFloat("duration", &cfg.Export.Duration)
	setString("name", &cfg.Export.FileName)
	setString("out-dir", &cfg.Export.OutputDir)
	if viper.IsSet("timeout") {
		cfg.Export.Timeout = viper.GetDuration("timeout")
	}
	setInt("workers", &cfg.Export.Workers)
	setInt("quality", &cfg.Export.Quality)
	setBool("dither", &cfg.Export.Dither)
	setBool("hardware", &cfg.Export.Hardware)
	setString("ffmpeg", &cfg.Export.FFmpeg)
	setBool("stats", &cfg.ShowStats)
}

// bindFlags binds every flag of cmd to the viper key of the same name.
func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		viper.BindPFlag(f.Name, f)
	})
}
