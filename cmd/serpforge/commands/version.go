package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serpforge/serpforge/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("serpforge %s (commit %s, built %s, %s, %s)\n",
			info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
