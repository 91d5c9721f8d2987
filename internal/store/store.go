// Package store persists bot state so it can survive restarts and be
// reconciled against the exchange on startup.
package store

import (
	"context"

	"kraken-trader/internal/models"
)

// Store is the persistence interface for bot state.
type Store interface {
	// SetValue writes a key in the key-value table (balance, last
	// heartbeat and similar simple metrics).
	SetValue(ctx context.Context, key, value string) error
	// GetValue reads a key. Returns errors.ErrDataNotFound when the
	// key does not exist.
	GetValue(ctx context.Context, key string) (string, error)

	// UpdatePosition upserts a position snapshot.
	UpdatePosition(ctx context.Context, symbol string, size, entryPrice float64) error
	// GetPosition reads a position snapshot. Returns
	// errors.ErrDataNotFound when no row exists.
	GetPosition(ctx context.Context, symbol string) (models.PositionRecord, error)

	// SaveOrder upserts an order row.
	SaveOrder(ctx context.Context, order models.OrderRecord) error
	// ActiveOrders lists orders with OPEN status.
	ActiveOrders(ctx context.Context) ([]models.OrderRecord, error)
	// UpdateOrderStatus sets the status of one order.
	UpdateOrderStatus(ctx context.Context, orderID, status string) error

	Close() error
}
