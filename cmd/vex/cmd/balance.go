package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantroll/vex/store"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the account balance",
	Long: `Show capital, available and used margin for the virtual account.

With --set the starting balance is reset. That is refused while any
position is open.`,
	RunE: runBalance,
}

var balanceSet float64

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().Float64Var(&balanceSet, "set", 0, "reset the starting balance")
}

func runBalance(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	if balanceSet > 0 {
		if err := app.ledger.SetStartingBalance(store.ModeVirtual, balanceSet); err != nil {
			return err
		}
		fmt.Printf("Starting balance set to %.2f\n", balanceSet)
	}

	if app.gw.IsConnected() {
		if b, err := app.gw.WalletBalance(cmd.Context()); err != nil {
			app.log.Warn("wallet balance unavailable", "error", err)
		} else {
			fmt.Printf("Real account (%s)\n", b.Currency)
			fmt.Printf("  Capital:   %12.4f\n", b.Capital)
			fmt.Printf("  Available: %12.4f\n", b.Available)
			fmt.Printf("  Used:      %12.4f\n\n", b.Used)
		}
	}

	acct := app.ledger.Balance(store.ModeVirtual)
	fmt.Printf("Virtual account (%s)\n", acct.Currency)
	fmt.Printf("  Capital:   %12.4f\n", acct.Capital)
	fmt.Printf("  Available: %12.4f\n", acct.Available)
	fmt.Printf("  Used:      %12.4f\n", acct.Used)

	s := app.ledger.Stats()
	if s.TotalTrades > 0 {
		fmt.Printf("\nClosed trades: %d  win rate: %.1f%%  total pnl: %+.4f\n",
			s.TotalTrades, s.WinRate, s.TotalPnl)
	}
	return nil
}
