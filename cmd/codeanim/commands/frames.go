package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ivlev/codeanim/internal/animation"
)

var framesCmd = &cobra.Command{
	Use:     "frames [file|-]",
	Short:   "Print the typing frames of a source file",
	Args:    cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error { bindFlags(cmd); return nil },
	RunE:    runFrames,
}

func init() {
	addSourceFlags(framesCmd)
	framesCmd.Flags().Bool("dump", false, "print every frame, not only the summary")
	rootCmd.AddCommand(framesCmd)
}

func runFrames(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	text, _, err := readSource(args, cmd.InOrStdin(), cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	frames, err := animation.Generate(text, cfg.Animation)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if viper.GetBool("dump") {
		for i, f := range frames {
			fmt.Fprintf(out, "--- frame %d ---\n%s\n", i, string(f))
		}
	}
	playback := time.Duration(len(frames)) * cfg.Animation.FrameInterval()
	fmt.Fprintf(out, "frames: %d\npause frames: %d\nplayback: %s\n",
		len(frames), animation.PauseFrames(cfg.Animation), playback.Round(time.Millisecond))
	return nil
}
