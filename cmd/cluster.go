package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster <subject>",
	Short: "Rebuild topic clusters for a subject",
	Long:  "Groups all stored questions for a subject into topic clusters per module and assigns priority tiers. The previous cluster set is replaced atomically.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		subject := args[0]

		env, err := initAnalysis(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.ClusterSubject(ctx, subject)
		if err != nil {
			return eris.Wrapf(err, "cluster %s", subject)
		}

		fmt.Printf("%s: %d topic clusters created\n", subject, result.ClustersCreated)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)
}
