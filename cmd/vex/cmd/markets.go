package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "Show market data from the venue",
	Long: `Show live USDT perpetual tickers.

With --symbol, recent candles for that instrument are shown instead.
With --names, only the tradable symbol list is printed.

Example:
  vex markets
  vex markets --symbol BTCUSDT --candles 10`,
	RunE: runMarkets,
}

var (
	marketsSymbol  string
	marketsCandles int
	marketsNames   bool
)

func init() {
	rootCmd.AddCommand(marketsCmd)

	marketsCmd.Flags().StringVar(&marketsSymbol, "symbol", "", "show candles for one symbol")
	marketsCmd.Flags().IntVar(&marketsCandles, "candles", 20, "number of hourly candles with --symbol")
	marketsCmd.Flags().BoolVar(&marketsNames, "names", false, "print tradable symbols only")
}

func runMarkets(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	if marketsNames {
		symbols, err := app.gw.Symbols(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range symbols {
			fmt.Println(s)
		}
		return nil
	}

	if marketsSymbol != "" {
		candles, err := app.gw.Kline(cmd.Context(), marketsSymbol, "60", marketsCandles)
		if err != nil {
			return err
		}
		fmt.Printf("%-20s %12s %12s %12s %12s %14s\n",
			"TIME", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
		for _, c := range candles {
			fmt.Printf("%-20s %12.4f %12.4f %12.4f %12.4f %14.3f\n",
				c.Time.Format("2006-01-02 15:04"), c.Open, c.High, c.Low, c.Close, c.Volume)
		}
		return nil
	}

	ticks, err := app.gw.Tickers(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("%-12s %14s %10s\n", "SYMBOL", "LAST", "24H%")
	for _, tk := range ticks {
		fmt.Printf("%-12s %14.4f %9.2f%%\n", tk.Symbol, tk.LastPrice, tk.Change24h*100)
	}
	return nil
}
