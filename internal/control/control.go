// Package control holds the global trading enable flag and the panic
// kill switch.
package control

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"kraken-trader/internal/events"
	"kraken-trader/internal/exchange"
)

// TradingControl gates order flow. It starts enabled.
type TradingControl struct {
	disabled atomic.Bool
	bus      *events.Bus
	logger   zerolog.Logger
}

// New creates a trading control. bus may be nil.
func New(bus *events.Bus, logger zerolog.Logger) *TradingControl {
	return &TradingControl{bus: bus, logger: logger}
}

// Enabled reports whether new entries may be placed.
func (c *TradingControl) Enabled() bool {
	return !c.disabled.Load()
}

// Stop disables trading.
func (c *TradingControl) Stop() {
	c.disabled.Store(true)
	c.logger.Warn().Msg("TRADING DISABLED")
	c.publishToggle(false)
}

// Resume re-enables trading.
func (c *TradingControl) Resume() {
	c.disabled.Store(false)
	c.logger.Info().Msg("TRADING ENABLED")
	c.publishToggle(true)
}

func (c *TradingControl) publishToggle(enabled bool) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.Event{
		Type: events.EventTradingToggled,
		Data: map[string]interface{}{"enabled": enabled},
	})
}

// PanicExchange is the slice of the exchange client the kill switch
// needs.
type PanicExchange interface {
	CancelAllOrders(ctx context.Context, symbol string) (int, error)
	GetOpenPositions(ctx context.Context) ([]exchange.OpenPosition, error)
	SendOrder(ctx context.Context, symbol, side, orderType string, size, limitPrice float64) (string, error)
}

// ExecutePanic runs the kill switch: disable trading, cancel all open
// orders, then market-close every open position. It keeps going past
// individual failures and reports everything it attempted.
func (c *TradingControl) ExecutePanic(ctx context.Context, ex PanicExchange) string {
	c.logger.Error().Msg("PANIC ACTIVATED, executing kill switch")
	c.Stop()

	var results []string

	cancelled, err := ex.CancelAllOrders(ctx, "")
	if err != nil {
		msg := fmt.Sprintf("cancel orders failed: %v", err)
		c.logger.Error().Err(err).Msg("Failed to cancel orders")
		results = append(results, msg)
	} else {
		results = append(results, fmt.Sprintf("%d orders cancelled", cancelled))
	}

	positions, err := ex.GetOpenPositions(ctx)
	if err != nil {
		msg := fmt.Sprintf("fetch positions failed: %v", err)
		c.logger.Error().Err(err).Msg("Failed to fetch positions")
		results = append(results, msg)
		return "Panic executed: " + strings.Join(results, ", ")
	}

	if len(positions) == 0 {
		results = append(results, "no positions open")
	} else {
		for _, pos := range positions {
			if pos.Size <= 0 {
				continue
			}
			closeSide := closingSide(pos.Side)
			c.logger.Warn().
				Str("symbol", pos.Symbol).
				Float64("size", pos.Size).
				Str("close_side", closeSide).
				Msg("Closing position")
			if _, err := ex.SendOrder(ctx, pos.Symbol, closeSide, "mkt", pos.Size, 0); err != nil {
				c.logger.Error().Err(err).Str("symbol", pos.Symbol).Msg("Failed to close position")
				results = append(results, fmt.Sprintf("close %s failed: %v", pos.Symbol, err))
				continue
			}
		}
		results = append(results, "positions closing")
	}

	return "Panic executed: " + strings.Join(results, ", ")
}

// closingSide maps a position side to the order side that flattens it.
// Positions report long/short; a buy/sell value is tolerated too.
func closingSide(side string) string {
	switch side {
	case "long", "buy":
		return "sell"
	default:
		return "buy"
	}
}
