package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the vex CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vex version %s\n", version)
		fmt.Println("A virtual exchange and position engine for crypto futures")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
