package cli

import (
	"github.com/spf13/cobra"

	"kraken-trader/internal/backtest"
	"kraken-trader/internal/broker"
	"kraken-trader/internal/events"
	"kraken-trader/internal/inference"
	"kraken-trader/internal/strategy"
)

func newBacktestCmd(app *App) *cobra.Command {
	var (
		file   string
		symbol string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a recorded CSV file through the strategy",
		Long: `Backtest replays a tick recording produced by the recorder against
the simulated broker and the reversal strategy, then prints a summary
report. Filters are off to mirror the raw pattern behavior.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			bus := events.NewBus()

			sim := broker.NewSimBroker(broker.SimBrokerConfig{
				InitialBalance: cfg.Trading.InitialBalance,
				Bus:            bus,
				Logger:         app.Logger,
			})

			gate := inference.NewGate(inference.GateConfig{
				MinConfidence: cfg.Inference.MinConfidence,
				Timeout:       cfg.Inference.Timeout,
				Logger:        app.Logger,
			})
			defer gate.Close()

			rev := strategy.NewReversal(strategy.ReversalConfig{
				Symbol:       symbol,
				Interval:     cfg.Trading.CandleInterval,
				MAPeriod:     cfg.Strategy.MAPeriod,
				RiskFraction: cfg.Strategy.RiskFraction,
				StopBuffer:   cfg.Strategy.StopBuffer,
			}, sim, gate, bus, app.Logger)

			runner := backtest.NewRunner(symbol, sim, rev, app.Logger)
			result, err := runner.Run(cmd.Context(), file)
			if err != nil {
				return err
			}
			backtest.PrintReport(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to CSV recording (required)")
	cmd.Flags().StringVar(&symbol, "symbol", "PI_XBTUSD", "symbol to backtest")
	cmd.MarkFlagRequired("file")

	return cmd
}
