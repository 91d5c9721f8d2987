// Package models provides domain models for the trading application.
package models

import (
	"time"
)

// OrderSide represents the side of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// Opposite returns the exit side for a given entry side.
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "mkt"
	OrderTypeStop   OrderType = "stop"
	OrderTypeLimit  OrderType = "limit"
)

// RunMode represents the execution mode of the system.
type RunMode string

const (
	ModeLive     RunMode = "live"
	ModePaper    RunMode = "paper"
	ModeBacktest RunMode = "backtest"
	ModeRecorder RunMode = "recorder"
)

// Tick represents a single market data update from the feed.
type Tick struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// Candle represents OHLCV data for one aggregation bucket.
// Time is the bucket start. A candle is mutable only while it is the
// current open bucket; once emitted by the aggregator it is final.
type Candle struct {
	Symbol   string
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Interval time.Duration
}

// Green reports whether the candle closed above its open.
func (c Candle) Green() bool { return c.Close > c.Open }

// Red reports whether the candle closed below its open.
func (c Candle) Red() bool { return c.Close < c.Open }

// Trade is an immutable fill record. Trades are append-only: the ledger
// is never mutated or truncated for the life of the broker.
type Trade struct {
	ID        string
	Symbol    string
	Side      OrderSide
	Size      float64
	Price     float64
	Timestamp time.Time
	Kind      OrderType // order type that produced the fill
}

// BracketOrder is a pending stop or limit exit order. Two brackets
// sharing a BracketID form an OCO pair: filling one removes the other.
type BracketOrder struct {
	Symbol    string
	Side      OrderSide // exit side
	Size      float64
	Price     float64 // trigger price
	Type      OrderType
	BracketID string
}

// PositionRecord is a persisted position snapshot, keyed by symbol.
type PositionRecord struct {
	Symbol     string
	Size       float64
	EntryPrice float64
	UpdatedAt  time.Time
}

// OrderRecord is a persisted order row used by live-mode reconciliation.
type OrderRecord struct {
	OrderID   string
	Symbol    string
	Side      string
	Size      float64
	Status    string
	CreatedAt time.Time
}

// Stats is a point-in-time snapshot of broker account state. Equity is
// recomputed on demand and never stored.
type Stats struct {
	Balance    float64
	Equity     float64
	PnL        float64
	TradeCount int
	Positions  map[string]float64 // non-zero positions by symbol
}
