package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ivlev/codeanim/internal/animation"
	"github.com/ivlev/codeanim/internal/capture"
	"github.com/ivlev/codeanim/internal/export"
	"github.com/ivlev/codeanim/internal/logger"
	"github.com/ivlev/codeanim/internal/system"
)

var renderCmd = &cobra.Command{
	Use:   "render [file|-]",
	Short: "Export a typing animation of a source file",
	Long: `Generate the typing frames of a source file and export them.

Without a file argument the newest source file in input/code is used; "-"
reads the snippet from stdin.`,
	Example: `  codeanim render main.go -f gif --fps 15
  codeanim render main.go -f mp4 --duration 8 --stats
  cat snippet.py | codeanim render - --language python -f svg --stdout > out.svg`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error { bindFlags(cmd); return nil },
	RunE:    runRender,
}

func init() {
	addSourceFlags(renderCmd)
	addRenderFlags(renderCmd)
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	system.InitResourceLimits()
	log := logger.WithComponent("cli")

	stderr := cmd.ErrOrStderr()
	text, language, err := readSource(args, cmd.InOrStdin(), stderr, cfg)
	if err != nil {
		return err
	}
	frames, err := animation.Generate(text, cfg.Animation)
	if err != nil {
		return err
	}
	req, err := export.RequestFromConfig(cfg.Export)
	if err != nil {
		return err
	}

	rasterizer, err := capture.NewTextRasterizer(cfg.Theme, language)
	if err != nil {
		return err
	}
	coord := newCoordinator(cfg, rasterizer)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("language", language).
		Int("frames", len(frames)).
		Str("format", string(req.Format)).
		Msg("Rendering")

	res, err := coord.Export(ctx, frames, req, func(p int) {
		fmt.Fprintf(stderr, "\r[>] %s: %3d%%", req.Format, p)
	})
	fmt.Fprintln(stderr)
	if err != nil {
		return err
	}

	if viper.GetBool("stdout") {
		if _, err := cmd.OutOrStdout().Write(res.Data); err != nil {
			return err
		}
	} else {
		path, err := res.WriteTo(cfg.Export.OutputDir)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", res.FileName, err)
		}
		fmt.Fprintf(stderr, "[+++] Успех! Результат: %s\n", path)
	}

	if cfg.ShowStats {
		io.WriteString(stderr, res.Stats.Report(res))
	}
	return nil
}
