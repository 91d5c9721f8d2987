// Package broker provides order execution interfaces and implementations.
package broker

import (
	"context"

	"kraken-trader/internal/models"
)

// Broker defines the capability set every execution layer exposes. Policy
// layers such as the risk proxy wrap any Broker and present the same
// contract, so any number of layers can stack.
type Broker interface {
	// PlaceOrder executes an order. A nil return does not guarantee a
	// fill: policy layers drop rejected orders silently, and the
	// simulated broker skips orders for symbols with no market price yet.
	PlaceOrder(ctx context.Context, req OrderRequest) error

	// Position returns the signed position for a symbol
	// (positive = long, negative = short).
	Position(symbol string) float64

	// Stats returns a point-in-time account snapshot. It is side-effect
	// free and idempotent.
	Stats() models.Stats
}

// OrderRequest describes an order submission.
type OrderRequest struct {
	Symbol string
	Side   models.OrderSide
	Type   models.OrderType
	Size   float64
	Price  float64 // limit price; unused for market orders
	Params OrderParams
}

// OrderParams carries optional order attachments. StopLoss and TakeProfit
// register bracket exit orders sharing one OCO pair; zero means absent.
// Confidence is the AI score attached for the risk layer; nil means the
// order carries no confidence claim.
type OrderParams struct {
	StopLoss   float64
	TakeProfit float64
	Confidence *float64
}
