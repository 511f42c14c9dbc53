package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantroll/vex/market"
)

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Close an open position",
	Long: `Close a position at the live market price.

Without --qty the entire position is closed. With --qty the oldest trades
are closed first; a trade larger than the remaining quantity is split and
closed partially.

Example:
  vex close --symbol BTCUSDT --side Buy --qty 0.0005`,
	RunE: runClose,
}

var (
	closeSymbol string
	closeSide   string
	closeQty    float64
)

func init() {
	rootCmd.AddCommand(closeCmd)

	closeCmd.Flags().StringVar(&closeSymbol, "symbol", "", "instrument symbol (required)")
	closeCmd.Flags().StringVar(&closeSide, "side", "", "side of the position to close (required)")
	closeCmd.Flags().Float64Var(&closeQty, "qty", 0, "quantity to close; 0 closes everything")
	closeCmd.MarkFlagRequired("symbol")
	closeCmd.MarkFlagRequired("side")
}

func runClose(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	if app.gw.IsConnected() {
		side, err := market.ParseSide(closeSide)
		if err != nil {
			return err
		}
		qty := closeQty
		if qty <= 0 {
			ps, err := app.gw.Positions(cmd.Context(), closeSymbol)
			if err != nil {
				return err
			}
			for _, p := range ps {
				if p.Side == side {
					qty = p.Size
				}
			}
			if qty <= 0 {
				fmt.Println("No open real position")
				return nil
			}
		}
		if err := app.gw.ClosePosition(cmd.Context(), closeSymbol, side, qty); err != nil {
			return err
		}
		fmt.Printf("Real close submitted: %s %s %.6f\n", side, closeSymbol, qty)
		return nil
	}

	var qty *float64
	if closeQty > 0 {
		qty = &closeQty
	}

	res, err := app.ledger.ClosePosition(cmd.Context(), closeSymbol, closeSide, qty)
	if err != nil {
		return err
	}

	for _, ch := range res.Closed {
		fmt.Printf("Closed %s: %s %s %.6f @ %.4f  pnl %+.4f (%s)\n",
			ch.OrderID, ch.Side, ch.Symbol, ch.Qty, ch.ClosePrice, ch.Pnl, ch.Reason)
	}
	return nil
}
