package main

import (
	"fmt"

	"github.com/aretw0/tripflow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tripflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tripflow version %s\n", tripflow.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
