package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/studydeck/exam-insights/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats <subject>",
	Short: "Show aggregate statistics for a subject",
	Long:  "Prints question counts, duplicate rate, distributions by module, difficulty and Bloom level, the year trend and the most repeated topics.",
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

		papers, err := st.ListPapers(ctx, subject)
		if err != nil {
			return eris.Wrap(err, "stats: list papers")
		}
		questions, err := st.ListQuestions(ctx, subject)
		if err != nil {
			return eris.Wrap(err, "stats: list questions")
		}
		clusters, err := st.ListClusters(ctx, subject, 0)
		if err != nil {
			return eris.Wrap(err, "stats: list clusters")
		}

		report := stats.Compute(subject, papers, questions, clusters)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
