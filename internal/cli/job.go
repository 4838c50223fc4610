package cli

import (
	"fmt"
	"time"

	"github.com/papercraft-labs/pcrelease/internal/pipeline"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(jobCmd)
}

var jobCmd = &cobra.Command{
	Use:   "job <tag> <platform>",
	Short: "Run a single PlatformJob and upload its artifact",
	Long: `Provision, build, package and upload the artifact of one platform. Use it
on per-platform CI runners that share a store, then run "publish" once all of
them have finished.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := release.ParseTag(args[0])
		if err != nil {
			return err
		}
		platform, err := release.ParsePlatform(args[1])
		if err != nil {
			return err
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		p, err := loadPipeline(settings)
		if err != nil {
			return err
		}
		jobs, _, err := pipeline.Plan(p, tag, []release.Platform{platform})
		if err != nil {
			return err
		}

		st, err := openStore(ctx, settings, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		exec, err := newExecutor(settings, st, logger)
		if err != nil {
			return err
		}

		res := exec.RunJob(ctx, jobs[0])
		if res.Status != pipeline.StatusSucceeded {
			return &ExitError{Code: pipeline.ExitFailed, Err: res.Err}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%d bytes) in %s\n", res.Name, res.Size, res.Duration.Round(time.Millisecond))
		return nil
	},
}
