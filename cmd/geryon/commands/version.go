package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Geryon v0.1.0")
		fmt.Println("Dual-memory-space matrix toolkit")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
