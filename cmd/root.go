package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studydeck/exam-insights/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "exam-insights",
	Short: "Exam paper question extraction and topic priority analysis",
	Long:  "Extracts questions from transcribed exam papers, classifies and embeds them, clusters repeated topics across years, and ranks topics by study priority.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
