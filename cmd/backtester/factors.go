package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"factorbt/strategies/factors"
)

var factorsCmd = &cobra.Command{
	Use:   "factors",
	Short: "List the available factors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range factors.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(factorsCmd)
}
