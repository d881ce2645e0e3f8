package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/studydeck/exam-insights/internal/pattern"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List available exam patterns",
	Long:  "Shows the built-in exam patterns plus any custom YAML patterns from the configured pattern directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		patterns := map[string]*pattern.ExamPattern{
			"ktu_standard":     pattern.KTUStandard(),
			"generic_5_module": pattern.Generic5Module(),
			"generic_6_module": pattern.Generic6Module(),
		}

		if cfg.Pattern.Dir != "" {
			custom, err := pattern.LoadDir(cfg.Pattern.Dir)
			if err != nil {
				return eris.Wrapf(err, "load patterns from %s", cfg.Pattern.Dir)
			}
			for name, p := range custom {
				patterns[name] = p
			}
		}

		formatPatterns(os.Stdout, patterns)
		return nil
	},
}

func formatPatterns(w io.Writer, patterns map[string]*pattern.ExamPattern) {
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPART A MARKS\tPART B MARKS\tDESCRIPTION")
	for _, name := range names {
		p := patterns[name]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n",
			name, p.PartA.MarksPerQuestion, p.PartB.MarksPerQuestion, p.Description)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}
