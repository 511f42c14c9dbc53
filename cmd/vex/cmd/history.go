package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantroll/vex/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled trade history",
	Long: `Query the trade journal.

Example:
  vex history --symbol BTCUSDT --status closed --limit 20`,
	RunE: runHistory,
}

var (
	historySymbol string
	historyStatus string
	historyLimit  int
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historySymbol, "symbol", "", "filter by symbol")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "filter by status (open or closed)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum rows")
}

func runHistory(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	recs, err := app.hist.Trades(journal.TradeFilter{
		Symbol: historySymbol,
		Status: historyStatus,
		Limit:  historyLimit,
	})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No journaled trades")
		return nil
	}

	fmt.Printf("%-28s %-10s %-5s %12s %12s %12s %10s %-12s\n",
		"ORDER", "SYMBOL", "SIDE", "QTY", "ENTRY", "EXIT", "PNL", "REASON")
	for _, r := range recs {
		fmt.Printf("%-28s %-10s %-5s %12.6f %12.4f %12.4f %+10.4f %-12s\n",
			r.OrderID, r.Symbol, r.Side, r.Qty, r.EntryPrice, r.ExitPrice, r.Pnl, r.Reason)
	}
	return nil
}
