package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantroll/vex/automate"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop",
	Long: `Run the automated trading loop until interrupted.

Each configured symbol gets its own scan worker. Open positions are swept
on every interval so stop-loss and take-profit levels fire even when no
signals are generated.

Example:
  vex run -f config.yaml`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tc := app.cfg.Trading
	trader := automate.New(app.ledger, automate.Hold{}, nil, automate.Options{
		Symbols:       tc.Symbols,
		Interval:      tc.IntervalDuration(),
		ErrorBackoff:  tc.ErrorBackoffDuration(),
		MinConfidence: tc.MinConfidence,
		RiskPerTrade:  tc.RiskPerTrade,
		MinSLPoints:   tc.MinSLPoints,
		MaxSLPoints:   tc.MaxSLPoints,
		Leverage:      tc.Leverage,
		Journal:       app.hist,
	}, app.log)

	trader.Start(ctx)
	defer trader.Stop()

	// Sweep open positions so guardrails fire independently of signal flow.
	ticker := time.NewTicker(tc.IntervalDuration())
	defer ticker.Stop()

	app.log.Info("running, press Ctrl-C to stop")
	for {
		select {
		case <-ctx.Done():
			s := trader.Stats()
			fmt.Printf("\nStopped after %s\n", s.Uptime.Round(time.Second))
			fmt.Printf("  Signals: %d  Executed: %d  Successful: %d  Failed: %d\n",
				s.SignalsGenerated, s.TradesExecuted, s.Successful, s.Failed)
			return nil
		case <-ticker.C:
			open := app.ledger.Positions(ctx, "")
			app.log.Debug("sweep complete", "open_positions", len(open))
		}
	}
}
