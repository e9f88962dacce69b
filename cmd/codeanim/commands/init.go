package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/codeanim/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a project file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "codeanim.yaml"
		if len(args) > 0 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}
