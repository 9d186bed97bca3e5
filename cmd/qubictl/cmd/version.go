package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixnatanaelbutarbutar/qubicball/pkg/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if output == "json" {
			printJSON(config.GetBuildInfo())
			return
		}
		fmt.Println(config.VersionString("qubictl"))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
