// Package strategy provides tick-driven trading strategies.
package strategy

import (
	"context"

	"kraken-trader/internal/models"
)

// TickHandler consumes market ticks. The stream hub and the backtest
// runner drive implementations one tick at a time, in arrival order per
// symbol; implementations are not required to be safe for concurrent use.
type TickHandler interface {
	OnTick(ctx context.Context, tick models.Tick)
}

// Direction labels a detected setup.
type Direction string

const (
	DirectionBearish Direction = "bearish"
	DirectionBullish Direction = "bullish"
)
