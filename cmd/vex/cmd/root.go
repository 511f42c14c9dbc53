package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vex",
	Short: "A virtual exchange and position engine for crypto futures",
	Long: `Vex simulates a crypto-futures venue against live market prices.

It provides tools for:
  - Placing virtual orders with margin accounting
  - Automatic stop-loss and take-profit monitoring
  - FIFO position closing, including partial closes
  - Crash-safe file-backed account state
  - An automated trading loop driven by pluggable signal generators`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

var cfgPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "", "path to config file (YAML or JSON)")
}
