// Package backtest replays recorded tick files through the simulated
// broker and a strategy, then reports the resulting account state.
package backtest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"kraken-trader/internal/broker"
	"kraken-trader/internal/models"
	"kraken-trader/internal/strategy"
)

// tickRow maps one line of a recorder CSV file.
type tickRow struct {
	Time   string  `csv:"time"`
	Symbol string  `csv:"symbol"`
	Price  float64 `csv:"price"`
	Volume float64 `csv:"volume"`
}

var tickTimeLayouts = []string{
	"2006-01-02T15:04:05.000000",
	time.RFC3339Nano,
	time.RFC3339,
}

func parseTickTime(s string) (time.Time, error) {
	var err error
	for _, layout := range tickTimeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// Runner replays one recording file.
type Runner struct {
	symbol   string
	broker   *broker.SimBroker
	strategy strategy.TickHandler
	logger   zerolog.Logger
}

// NewRunner creates a backtest runner. The broker must be the same
// instance the strategy trades against.
func NewRunner(symbol string, sim *broker.SimBroker, handler strategy.TickHandler, logger zerolog.Logger) *Runner {
	return &Runner{
		symbol:   symbol,
		broker:   sim,
		strategy: handler,
		logger:   logger,
	}
}

// Result summarizes a completed run.
type Result struct {
	File      string
	Ticks     int
	Skipped   int
	Stats     models.Stats
	StartedAt time.Time
	Duration  time.Duration
}

// Run replays the file tick by tick. Rows for other symbols and
// malformed rows are skipped.
func (r *Runner) Run(ctx context.Context, path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer file.Close()

	var rows []*tickRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("parse recording: %w", err)
	}

	result := &Result{File: path, StartedAt: time.Now()}

	for _, row := range rows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if row.Symbol != r.symbol {
			result.Skipped++
			continue
		}
		ts, err := parseTickTime(row.Time)
		if err != nil {
			result.Skipped++
			continue
		}

		r.broker.UpdateMarketState(r.symbol, row.Price, ts)
		r.strategy.OnTick(ctx, models.Tick{
			Symbol:    r.symbol,
			Price:     row.Price,
			Volume:    row.Volume,
			Timestamp: ts,
		})
		result.Ticks++

		if result.Ticks%10000 == 0 {
			r.logger.Debug().Int("ticks", result.Ticks).Msg("Backtest progress")
		}
	}

	result.Stats = r.broker.Stats()
	result.Duration = time.Since(result.StartedAt)
	return result, nil
}

// PrintReport writes the run summary to stdout.
func PrintReport(result *Result) {
	header := color.New(color.FgCyan, color.Bold)
	header.Println("=== Backtest Report ===")
	fmt.Printf("File:            %s\n", result.File)
	fmt.Printf("Ticks Processed: %d\n", result.Ticks)
	fmt.Printf("Rows Skipped:    %d\n", result.Skipped)
	fmt.Printf("Trades Executed: %d\n", result.Stats.TradeCount)

	pnlColor := color.New(color.FgGreen)
	if result.Stats.PnL < 0 {
		pnlColor = color.New(color.FgRed)
	}
	pnlColor.Printf("Final PnL:       $%.2f\n", result.Stats.PnL)
	fmt.Printf("Final Equity:    $%.2f\n", result.Stats.Equity)
	for symbol, size := range result.Stats.Positions {
		fmt.Printf("Open Position:   %s %.4f\n", symbol, size)
	}
	fmt.Printf("Elapsed:         %s\n", result.Duration.Round(time.Millisecond))
	header.Println("=======================")
}
