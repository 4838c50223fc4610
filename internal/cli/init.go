package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/papercraft-labs/pcrelease/internal/config"
	"github.com/papercraft-labs/pcrelease/internal/fsutil"
	"github.com/papercraft-labs/pcrelease/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	initForce  bool
	initGlobal bool
)

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing pipeline.yaml")
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "Also point the user config at the written pipeline")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write the built-in pipeline manifest for editing",
	Long: `Write the embedded pipeline.yaml into dir (default: the current directory)
so jobs, tools and packaging options can be customized.

With --global, the user config's "pipeline" key is set to the written file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		path, err := filepath.Abs(filepath.Join(dir, "pipeline.yaml"))
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := fsutil.WriteFile(path, manifest.DefaultYAML(), 0644); err != nil {
			return fmt.Errorf("writing pipeline: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

		if initGlobal {
			if err := config.Set(config.KeyPipeline, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", config.KeyPipeline, path, config.FilePath())
		}
		return nil
	},
}
