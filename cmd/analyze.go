package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/studydeck/exam-insights/internal/model"
)

var yearRe = regexp.MustCompile(`(19|20)\d{2}`)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <subject> <paper-file>...",
	Short: "Extract and analyze questions from transcribed exam papers",
	Long:  "Reads transcribed paper text files, extracts questions, classifies them and stores the results. Each file becomes one paper.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		subject := args[0]
		files := args[1:]

		env, err := initAnalysis(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		yearFlag, _ := cmd.Flags().GetString("year")
		if yearFlag != "" && len(files) > 1 {
			return eris.New("--year applies to a single paper file; name multi-file batches with the year instead")
		}

		for _, file := range files {
			raw, err := os.ReadFile(file)
			if err != nil {
				return eris.Wrapf(err, "read paper %s", file)
			}

			year := yearFlag
			if year == "" {
				year = yearRe.FindString(filepath.Base(file))
			}

			// Stable identity per (subject, file): re-running analyze on
			// the same paper updates it rather than ingesting a duplicate.
			paper := &model.Paper{
				ID:      model.PaperID(subject, filepath.Base(file)),
				Subject: subject,
				Year:    year,
				RawText: string(raw),
			}
			result, err := env.Pipeline.AnalyzePaper(ctx, paper)
			if err != nil {
				return eris.Wrapf(err, "analyze %s", file)
			}

			fmt.Printf("%s: %d questions extracted, %d classified, %d embedded\n",
				filepath.Base(file), result.QuestionsExtracted, result.QuestionsClassified, result.QuestionsEmbedded)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("year", "", "exam year of the paper (default: parsed from the filename)")
	rootCmd.AddCommand(analyzeCmd)
}
