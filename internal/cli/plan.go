package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/papercraft-labs/pcrelease/internal/pipeline"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"github.com/spf13/cobra"
)

var (
	planPlatforms []string
	planJSON      bool
)

func init() {
	planCmd.Flags().StringSliceVarP(&planPlatforms, "platform", "p", nil, "Restrict the plan to these platforms")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(planCmd)
}

type planEntry struct {
	Platform string   `json:"platform"`
	Target   string   `json:"target"`
	Artifact string   `json:"artifact"`
	Package  string   `json:"package"`
	Tools    []string `json:"tools"`
}

var planCmd = &cobra.Command{
	Use:   "plan <tag>",
	Short: "Show the jobs and artifact names of a release without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := release.ParseTag(args[0])
		if err != nil {
			return err
		}
		platforms, err := parsePlatforms(planPlatforms)
		if err != nil {
			return err
		}
		p, err := loadPipeline(settings)
		if err != nil {
			return err
		}
		jobs, _, err := pipeline.Plan(p, tag, platforms)
		if err != nil {
			return err
		}

		entries := make([]planEntry, 0, len(jobs))
		for _, j := range jobs {
			tools := []string{}
			for _, t := range j.Spec.Tools {
				tools = append(tools, t.Name+" ("+t.Kind+")")
			}
			entries = append(entries, planEntry{
				Platform: string(j.Platform),
				Target:   j.Spec.Target,
				Artifact: j.ArtifactName,
				Package:  j.Spec.Package.Kind,
				Tools:    tools,
			})
		}

		if planJSON {
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PLATFORM\tTARGET\tARTIFACT\tPACKAGE\tTOOLS")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Platform, e.Target, e.Artifact, e.Package, strings.Join(e.Tools, ", "))
		}
		return w.Flush()
	},
}
