package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kraken-trader/internal/recorder"
	"kraken-trader/internal/stream"
)

func newRecordCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Archive live ticks to daily CSV files without trading",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rec, err := recorder.New(cfg.Recorder.Dir, app.Logger)
			if err != nil {
				return err
			}
			rec.Start()
			defer rec.Stop()

			feed := stream.NewKrakenFeed(stream.FeedConfig{
				Symbols: cfg.Trading.Symbols,
				Logger:  app.Logger,
			})
			feed.AddListener(rec.Record)
			feed.Start(ctx)
			defer feed.Stop()

			app.Logger.Info().Msg("Recording, press Ctrl-C to stop")
			<-ctx.Done()
			return nil
		},
	}
}
