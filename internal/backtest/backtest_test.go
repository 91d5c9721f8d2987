package backtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"kraken-trader/internal/broker"
	"kraken-trader/internal/models"
)

type countingHandler struct {
	ticks []models.Tick
}

func (c *countingHandler) OnTick(ctx context.Context, tick models.Tick) {
	c.ticks = append(c.ticks, tick)
}

func writeRecording(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticker_2024-03-15.csv")
	content := "time,symbol,price,volume\n" + rows
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunReplaysTicksInOrder(t *testing.T) {
	path := writeRecording(t,
		"2024-03-15T10:00:00.000000,PI_XBTUSD,100,1\n"+
			"2024-03-15T10:00:01.000000,PI_XBTUSD,101,2\n"+
			"2024-03-15T10:00:02.000000,PI_XBTUSD,102,1\n")

	sim := broker.NewSimBroker(broker.SimBrokerConfig{
		InitialBalance: 10000,
		Logger:         zerolog.Nop(),
	})
	handler := &countingHandler{}
	runner := NewRunner("PI_XBTUSD", sim, handler, zerolog.Nop())

	result, err := runner.Run(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if result.Ticks != 3 {
		t.Errorf("ticks = %d, want 3", result.Ticks)
	}
	if len(handler.ticks) != 3 {
		t.Fatalf("handler ticks = %d, want 3", len(handler.ticks))
	}
	if handler.ticks[0].Price != 100 || handler.ticks[2].Price != 102 {
		t.Errorf("tick order wrong: %v", handler.ticks)
	}
	// The broker saw every price, so equity reflects initial balance.
	if got := result.Stats.Equity; got != 10000 {
		t.Errorf("equity = %v, want 10000 with no trades", got)
	}
}

func TestRunSkipsOtherSymbolsAndMalformedRows(t *testing.T) {
	path := writeRecording(t,
		"2024-03-15T10:00:00.000000,PI_XBTUSD,100,1\n"+
			"2024-03-15T10:00:01.000000,PI_ETHUSD,2200,1\n"+
			"not-a-time,PI_XBTUSD,101,1\n")

	sim := broker.NewSimBroker(broker.SimBrokerConfig{
		InitialBalance: 10000,
		Logger:         zerolog.Nop(),
	})
	handler := &countingHandler{}
	runner := NewRunner("PI_XBTUSD", sim, handler, zerolog.Nop())

	result, err := runner.Run(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if result.Ticks != 1 {
		t.Errorf("ticks = %d, want 1", result.Ticks)
	}
	if result.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", result.Skipped)
	}
}

func TestRunMissingFile(t *testing.T) {
	sim := broker.NewSimBroker(broker.SimBrokerConfig{Logger: zerolog.Nop()})
	runner := NewRunner("PI_XBTUSD", sim, &countingHandler{}, zerolog.Nop())

	if _, err := runner.Run(context.Background(), "/nonexistent.csv"); err == nil {
		t.Error("expected error for missing file")
	}
}
