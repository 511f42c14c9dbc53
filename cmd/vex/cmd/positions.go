package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List open positions",
	Long: `List open positions with live prices and unrealized PnL.

Prices are fetched from the venue; positions whose stop-loss or take-profit
level has been breached are closed before the listing is produced.`,
	RunE: runPositions,
}

var positionsSymbol string

func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.Flags().StringVar(&positionsSymbol, "symbol", "", "filter by symbol")
}

func runPositions(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	if app.gw.IsConnected() {
		ps, err := app.gw.Positions(cmd.Context(), positionsSymbol)
		if err != nil {
			app.log.Warn("venue positions unavailable", "error", err)
		} else if len(ps) > 0 {
			fmt.Println("Real positions:")
			for _, p := range ps {
				fmt.Printf("  %-10s %-5s %12.6f @ %12.4f  upnl %+.4f\n",
					p.Symbol, p.Side, p.Size, p.EntryPrice, p.UnrealizedPnl)
			}
			fmt.Println()
		}
	}

	views := app.ledger.Positions(cmd.Context(), positionsSymbol)
	if len(views) == 0 {
		fmt.Println("No open positions")
		return nil
	}

	fmt.Printf("%-28s %-10s %-5s %12s %12s %12s %12s\n",
		"ORDER", "SYMBOL", "SIDE", "SIZE", "ENTRY", "MARK", "UPNL")
	for _, v := range views {
		fmt.Printf("%-28s %-10s %-5s %12.6f %12.4f %12.4f %+12.4f\n",
			v.OrderID, v.Symbol, v.Side, v.Size, v.EntryPrice, v.CurrentPrice, v.UnrealizedPnl)
	}

	fmt.Printf("\nDaily realized PnL: %+.4f\n", app.ledger.DailyPnl(cmd.Context()))
	return nil
}
