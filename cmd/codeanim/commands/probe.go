package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ivlev/codeanim/internal/capture"
	"github.com/ivlev/codeanim/internal/export"
)

var probeCmd = &cobra.Command{
	Use:     "probe",
	Short:   "Report which export formats are available on this machine",
	Args:    cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error { bindFlags(cmd); return nil },
	RunE:    runProbe,
}

func init() {
	probeCmd.Flags().String("ffmpeg", "", "ffmpeg binary")
	probeCmd.Flags().Bool("hardware", false, "prefer a hardware H.264 encoder for MP4")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rasterizer, err := capture.NewTextRasterizer(cfg.Theme, cfg.Language)
	if err != nil {
		return err
	}
	coord := newCoordinator(cfg, rasterizer)

	return writeProbeTable(cmd.Context(), cmd.OutOrStdout(), coord)
}

// writeProbeTable prints one row per format with its capability status.
func writeProbeTable(ctx context.Context, out io.Writer, coord *export.Coordinator) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FORMAT\tMIME\tSTATUS")
	for _, f := range export.Formats {
		status := "ok"
		if !coord.Supports(f) {
			status = "no encoder"
		} else if err := coord.Probe(ctx, f); err != nil {
			status = err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", f, f.MIME(), status)
	}
	return w.Flush()
}
