// Package cli provides the command-line interface for the trading bot.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"kraken-trader/internal/config"
	"kraken-trader/internal/logging"
)

// Version information
const (
	Version = "0.3.0"
)

// App holds the application dependencies shared by commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "kraken-trader",
		Short: "Kraken Futures trading bot",
		Long: `kraken-trader is an automated crypto derivatives trading bot for
Kraken Futures.

It streams live ticks, aggregates them into candles, detects reversal
patterns, gates entries through an optional AI confidence model, and
executes bracket orders through a risk-checked broker. Paper trading
and CSV backtesting run against a built-in simulated broker.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/kraken-trader)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))
	rootCmd.AddCommand(newRecordCmd(app))
	rootCmd.AddCommand(newPanicCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kraken-trader v%s\n", Version)
		},
	}
}
