package cmd

import (
	"fmt"

	"github.com/msto63/ecsq/pkg/core/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, version.String())
		fmt.Fprintf(out, "  Language: %s\n", version.ComponentVersion("language"))
		fmt.Fprintf(out, "  Shell:    %s\n", version.ComponentVersion("shell"))
		fmt.Fprintf(out, "  Server:   %s\n", version.ComponentVersion("server"))
		fmt.Fprintf(out, "  Store:    %s\n", version.ComponentVersion("store"))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
