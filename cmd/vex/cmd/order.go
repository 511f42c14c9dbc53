package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantroll/vex/gateway"
	"github.com/quantroll/vex/market"
	"github.com/quantroll/vex/vex"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Place a virtual order",
	Long: `Place a virtual futures order against the ledger.

The order fills immediately at the given price, or at the live market price
when --price is omitted. Margin is reserved from the virtual balance.

Example:
  vex order --symbol BTCUSDT --side Buy --qty 0.001 --leverage 10`,
	RunE: runOrder,
}

var (
	orderSymbol   string
	orderSide     string
	orderQty      float64
	orderPrice    float64
	orderSL       float64
	orderTP       float64
	orderLeverage int
)

func init() {
	rootCmd.AddCommand(orderCmd)

	orderCmd.Flags().StringVar(&orderSymbol, "symbol", "", "instrument symbol, e.g. BTCUSDT (required)")
	orderCmd.Flags().StringVar(&orderSide, "side", "", "Buy or Sell (required)")
	orderCmd.Flags().Float64Var(&orderQty, "qty", 0, "order quantity in base units (required)")
	orderCmd.Flags().Float64Var(&orderPrice, "price", 0, "limit price; 0 fills at market")
	orderCmd.Flags().Float64Var(&orderSL, "sl", 0, "stop-loss price; 0 uses the default guardrail")
	orderCmd.Flags().Float64Var(&orderTP, "tp", 0, "take-profit price; 0 uses the default guardrail")
	orderCmd.Flags().IntVar(&orderLeverage, "leverage", 0, "leverage; 0 uses the default")
	orderCmd.MarkFlagRequired("symbol")
	orderCmd.MarkFlagRequired("side")
	orderCmd.MarkFlagRequired("qty")
}

func runOrder(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	if app.gw.IsConnected() {
		side, err := market.ParseSide(orderSide)
		if err != nil {
			return err
		}
		greq := gateway.OrderRequest{
			Symbol: orderSymbol,
			Side:   side,
			Qty:    orderQty,
			Price:  orderPrice,
		}
		if orderSL > 0 {
			greq.StopLoss = &orderSL
		}
		if orderTP > 0 {
			greq.TakeProfit = &orderTP
		}
		ack, err := app.gw.PlaceOrder(cmd.Context(), greq)
		if err != nil {
			return err
		}
		fmt.Printf("Real order %s submitted: %s %s %.6f\n",
			ack.OrderID, side, orderSymbol, orderQty)
		return nil
	}

	req := vex.OrderRequest{
		Symbol:   orderSymbol,
		Side:     orderSide,
		Qty:      orderQty,
		Price:    orderPrice,
		Leverage: orderLeverage,
	}
	if orderSL > 0 {
		req.StopLoss = &orderSL
	}
	if orderTP > 0 {
		req.TakeProfit = &orderTP
	}

	ack, err := app.ledger.PlaceOrder(cmd.Context(), req)
	if err != nil {
		return err
	}

	fmt.Printf("Order %s filled\n", ack.OrderID)
	fmt.Printf("  %s %s %.6f @ %.4f (leverage %dx)\n",
		ack.Side, ack.Symbol, ack.Qty, ack.Price, ack.Leverage)
	fmt.Printf("  SL: %.4f  TP: %.4f\n", ack.StopLoss, ack.TakeProfit)
	return nil
}
