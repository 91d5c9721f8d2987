package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"kraken-trader/internal/broker"
	"kraken-trader/internal/control"
	"kraken-trader/internal/events"
	"kraken-trader/internal/exchange"
	"kraken-trader/internal/inference"
	"kraken-trader/internal/models"
	"kraken-trader/internal/notify"
	"kraken-trader/internal/recorder"
	"kraken-trader/internal/recovery"
	"kraken-trader/internal/risk"
	"kraken-trader/internal/store"
	"kraken-trader/internal/strategy"
	"kraken-trader/internal/stream"
	"kraken-trader/internal/watchdog"
)

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot against the live Kraken Futures feed",
		Long: `Run streams live ticks and trades according to the configured mode:
paper trades against the simulated broker, recorder only archives ticks
with trading disabled. The session runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), app)
		},
	}
	return cmd
}

func runSession(ctx context.Context, app *App) error {
	cfg := app.Config
	logger := app.Logger

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("mode", cfg.Trading.Mode).
		Strs("symbols", cfg.Trading.Symbols).
		Msg("System initialized")

	bus := events.NewBus()

	// Persistence and watchdog run in every mode.
	st, err := store.NewSQLiteStore(filepath.Join(cfg.App.DataDir, "state.db"), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	dog := watchdog.New(0, 0, logger)
	dog.Start(ctx)
	defer dog.Stop()

	tc := control.New(bus, logger)

	rec, err := recorder.New(cfg.Recorder.Dir, logger)
	if err != nil {
		return err
	}

	feed := stream.NewKrakenFeed(stream.FeedConfig{
		Symbols: cfg.Trading.Symbols,
		Logger:  logger,
	})
	hub := stream.NewHub(0, logger)

	if cfg.Recorder.Enabled || cfg.Trading.Mode == "recorder" {
		rec.Start()
		defer rec.Stop()
		feed.AddListener(rec.Record)
	}

	var sim *broker.SimBroker
	if cfg.Trading.Mode == "recorder" {
		logger.Info().Msg("Recorder mode: trading disabled")
		tc.Stop()
	} else {
		sim = broker.NewSimBroker(broker.SimBrokerConfig{
			InitialBalance: cfg.Trading.InitialBalance,
			Bus:            bus,
			Logger:         logger,
		})

		gate := buildGate(app)
		defer gate.Close()

		manager := risk.NewManager(risk.ManagerConfig{
			MinConfidence:   cfg.Risk.MinConfidence,
			MaxPositionSize: cfg.Risk.MaxPositionSize,
			Logger:          logger,
		})
		safe := risk.NewSafeBroker(sim, manager, bus)

		strategies := make(map[string]strategy.TickHandler, len(cfg.Trading.Symbols))
		for _, symbol := range cfg.Trading.Symbols {
			strategies[symbol] = strategy.NewReversal(strategy.ReversalConfig{
				Symbol:        symbol,
				Interval:      cfg.Trading.CandleInterval,
				MAPeriod:      cfg.Strategy.MAPeriod,
				FilterBearish: cfg.Strategy.FilterBearish,
				FilterBullish: cfg.Strategy.FilterBullish,
				RiskFraction:  cfg.Strategy.RiskFraction,
				StopBuffer:    cfg.Strategy.StopBuffer,
			}, safe, gate, bus, logger)
			logger.Info().Str("symbol", symbol).Msg("Strategy initialized")
		}

		hub.AddConsumer(func(ctx context.Context, tick models.Tick) {
			sim.UpdateMarketState(tick.Symbol, tick.Price, tick.Timestamp)
			if !tc.Enabled() {
				return
			}
			if handler, ok := strategies[tick.Symbol]; ok {
				handler.OnTick(ctx, tick)
			}
		})
		feed.AddListener(hub.Offer)

		// Live credentials enable startup reconciliation against the
		// exchange; paper mode has nothing remote to reconcile.
		if cfg.Trading.Mode == "live" && cfg.Credentials.Kraken.APIKey != "" {
			ex := exchange.NewClient(exchange.ClientConfig{
				APIKey:     cfg.Credentials.Kraken.APIKey,
				PrivateKey: cfg.Credentials.Kraken.PrivateKey,
				Logger:     logger,
			})
			if err := recovery.NewService(st, ex, logger).Reconcile(ctx); err != nil {
				logger.Error().Err(err).Msg("Reconciliation failed")
			}
		}
	}

	attachNotifications(app, bus)

	hub.Start(ctx)
	feed.Start(ctx)

	logger.Info().Msg("Session ready, waiting for ticks")
	<-ctx.Done()

	logger.Info().Msg("Shutdown initiated")
	feed.Stop()

	if sim != nil {
		stats := sim.Stats()
		logger.Info().
			Float64("pnl", stats.PnL).
			Float64("equity", stats.Equity).
			Int("trades", stats.TradeCount).
			Msg("Session ended")
		fmt.Printf("Session ended. PnL: $%.2f, equity: $%.2f, trades: %d\n",
			stats.PnL, stats.Equity, stats.TradeCount)
	}
	return nil
}

// buildGate constructs the confidence gate. Without inference enabled
// (or without an OpenAI key) the gate has no scorer and passes
// everything through.
func buildGate(app *App) *inference.Gate {
	cfg := app.Config
	gateCfg := inference.GateConfig{
		MinConfidence: cfg.Inference.MinConfidence,
		Timeout:       cfg.Inference.Timeout,
		Logger:        app.Logger,
	}
	if cfg.Inference.Enabled && cfg.Credentials.OpenAI.APIKey != "" {
		gateCfg.Scorer = inference.NewLLMScorer(cfg.Credentials.OpenAI.APIKey, cfg.Inference.Model)
		app.Logger.Info().Str("model", cfg.Inference.Model).Msg("Inference gate enabled")
	}
	return inference.NewGate(gateCfg)
}

func attachNotifications(app *App, bus *events.Bus) {
	cfg := app.Config
	svc := notify.NewService(app.Logger, notify.NewConsole())
	if cfg.Notifications.Telegram.Enabled && cfg.Notifications.Telegram.BotToken != "" {
		for _, chatID := range cfg.Notifications.Telegram.ChatIDs {
			svc.AddChannel(notify.NewTelegram(cfg.Notifications.Telegram.BotToken, fmt.Sprintf("%d", chatID)))
		}
	}
	svc.Attach(bus)
}
