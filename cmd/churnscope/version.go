package main

import (
	"fmt"

	"github.com/paveg/churnscope/internal/version"
	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.Info()
			if verbose {
				fmt.Fprint(cmd.OutOrStdout(), info.String())
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.Short())
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include build and dependency details")
	return cmd
}
