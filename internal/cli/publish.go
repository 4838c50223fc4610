package cli

import (
	"github.com/papercraft-labs/pcrelease/internal/pipeline"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/spf13/cobra"
)

var (
	publishPlatforms []string
	publishDryRun    bool
)

func init() {
	publishCmd.Flags().StringSliceVarP(&publishPlatforms, "platform", "p", nil, "Platforms expected in the release (default all)")
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "Publish into <workspace>/releases instead of GitHub")
	rootCmd.AddCommand(publishCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish <tag>",
	Short: "Publish the artifacts uploaded by earlier job runs",
	Long: `Collect every expected artifact of <tag> from the store and publish them as
one pre-release. An artifact missing from the store counts as a failed
platform. Exit status follows "release".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := release.ParseTag(args[0])
		if err != nil {
			return err
		}
		platforms, err := parsePlatforms(publishPlatforms)
		if err != nil {
			return err
		}
		if len(platforms) == 0 {
			platforms = release.AllPlatforms()
		}
		m := release.NewManifest(tag, platforms)

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		st, err := openStore(ctx, settings, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		pub, err := newPublisher(settings, publishDryRun, logger)
		if err != nil {
			return err
		}

		results, err := pipeline.StoredResults(ctx, st, m)
		if err != nil {
			return err
		}
		agg := newAggregator(cmd, m, st, pub)
		return finish(cmd, agg.Run(ctx, results))
	},
}
