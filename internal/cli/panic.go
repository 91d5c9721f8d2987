package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"kraken-trader/internal/control"
	"kraken-trader/internal/events"
	"kraken-trader/internal/exchange"
)

func newPanicCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "panic",
		Short: "Kill switch: cancel all orders and close all positions",
		Long: `Panic disables trading, cancels every open order on the exchange and
market-closes every open position. It requires live Kraken credentials.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := app.Config.Credentials.Kraken
			if creds.APIKey == "" || creds.PrivateKey == "" {
				return fmt.Errorf("panic requires Kraken API credentials")
			}

			ex := exchange.NewClient(exchange.ClientConfig{
				APIKey:     creds.APIKey,
				PrivateKey: creds.PrivateKey,
				Logger:     app.Logger,
			})

			tc := control.New(events.NewBus(), app.Logger)
			result := tc.ExecutePanic(cmd.Context(), ex)
			fmt.Println(result)
			return nil
		},
	}
}
