package cli

import (
	"fmt"

	"github.com/papercraft-labs/pcrelease/internal/manifest"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate [pipeline.yaml]",
	Short: "Validate a pipeline manifest",
	Long: `Check a pipeline manifest against the embedded JSON schema and the
cross-field rules. Without an argument the configured pipeline is checked,
or the embedded default when none is configured.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settings.Pipeline
		if len(args) == 1 {
			path = args[0]
		}
		out := cmd.OutOrStdout()

		if path == "" {
			p, err := manifest.Default()
			if err != nil {
				fmt.Fprintf(out, "  [FAIL] embedded pipeline: %v\n", err)
				return &ExitError{Code: 1}
			}
			fmt.Fprintf(out, "  [ OK ] Embedded pipeline: %s, %d jobs\n", p.App.DisplayName, len(p.Jobs))
			return nil
		}

		fmt.Fprintf(out, "Pipeline validation: %s\n", path)
		result, err := manifest.ValidateFile(path)
		if err != nil {
			fmt.Fprintf(out, "  [FAIL] %v\n", err)
			return &ExitError{Code: 1}
		}
		if !result.Valid {
			fmt.Fprintf(out, "  [FAIL] %d validation issue(s):\n", len(result.Issues))
			for _, issue := range result.Issues {
				if issue.Path != "" {
					fmt.Fprintf(out, "    - %s: %s\n", issue.Path, issue.Message)
				} else {
					fmt.Fprintf(out, "    - %s\n", issue.Message)
				}
			}
			return &ExitError{Code: 1}
		}

		p := result.Pipeline
		fmt.Fprintf(out, "  [ OK ] Valid pipeline: %s, %d jobs\n", p.App.DisplayName, len(p.Jobs))
		return nil
	},
}
