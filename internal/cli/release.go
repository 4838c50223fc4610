package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/papercraft-labs/pcrelease/internal/pipeline"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	releasePlatforms []string
	releaseDryRun    bool
)

func init() {
	releaseCmd.Flags().StringSliceVarP(&releasePlatforms, "platform", "p", nil, "Restrict the release to these platforms (repeatable)")
	releaseCmd.Flags().BoolVar(&releaseDryRun, "dry-run", false, "Publish into <workspace>/releases instead of GitHub")
	rootCmd.AddCommand(releaseCmd)
}

var releaseCmd = &cobra.Command{
	Use:   "release <tag>",
	Short: "Build, package and publish every platform",
	Long: `Run one PlatformJob per platform in parallel, then publish every artifact
that was produced as a single pre-release.

Exit status is 0 when every platform was published, 3 when only some were
published and 1 when nothing was published.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := release.ParseTag(args[0])
		if err != nil {
			return err
		}
		platforms, err := parsePlatforms(releasePlatforms)
		if err != nil {
			return err
		}

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		p, err := loadPipeline(settings)
		if err != nil {
			return err
		}
		jobs, m, err := pipeline.Plan(p, tag, platforms)
		if err != nil {
			return err
		}
		logTag(tag)

		st, err := openStore(ctx, settings, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		pub, err := newPublisher(settings, releaseDryRun, logger)
		if err != nil {
			return err
		}
		exec, err := newExecutor(settings, st, logger)
		if err != nil {
			return err
		}

		agg := newAggregator(cmd, m, st, pub)
		sum := pipeline.Run(ctx, exec, jobs, agg)
		return finish(cmd, sum)
	},
}

// signalContext cancels on SIGINT or SIGTERM so running jobs stop
// cooperatively.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func logTag(tag release.Tag) {
	if tag.HasPrereleaseComponent() {
		logger.Info("tag carries a semver pre-release component", zap.String("tag", tag.String()))
	} else if _, ok := tag.Semver(); !ok {
		logger.Debug("tag is not a semantic version", zap.String("tag", tag.String()))
	}
}
