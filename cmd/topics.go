package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/studydeck/exam-insights/internal/model"
)

var topicsCmd = &cobra.Command{
	Use:   "topics <subject>",
	Short: "List topic clusters ranked by priority",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		subject := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		tier, _ := cmd.Flags().GetInt("tier")
		module, _ := cmd.Flags().GetInt("module")

		clusters, err := st.ListClusters(ctx, subject, model.PriorityTier(tier))
		if err != nil {
			return eris.Wrap(err, "list topics")
		}
		if module > 0 {
			filtered := clusters[:0]
			for _, c := range clusters {
				if c.Module == module {
					filtered = append(filtered, c)
				}
			}
			clusters = filtered
		}

		if len(clusters) == 0 {
			fmt.Fprintln(os.Stderr, "No topics found. Run 'cluster' first.")
			return nil
		}

		formatTopics(os.Stdout, clusters)
		return nil
	},
}

func formatTopics(w io.Writer, clusters []model.TopicCluster) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOPIC\tMODULE\tFREQ\tYEARS\tMARKS\tPRIORITY")
	for _, c := range clusters {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%d\t%s\n",
			c.TopicName, c.Module, c.FrequencyCount,
			strings.Join(c.YearsAppeared, ","), c.TotalMarks, c.PriorityTier.Label())
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	topicsCmd.Flags().Int("tier", 0, "filter by priority tier (1-4)")
	topicsCmd.Flags().Int("module", 0, "filter by module number")
	rootCmd.AddCommand(topicsCmd)
}
