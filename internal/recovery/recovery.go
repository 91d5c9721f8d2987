// Package recovery reconciles persisted local state against the
// exchange after a restart. The exchange is the source of truth.
package recovery

import (
	"context"

	"github.com/rs/zerolog"

	"kraken-trader/internal/exchange"
	"kraken-trader/internal/logging"
	"kraken-trader/internal/models"
	"kraken-trader/internal/store"
	"kraken-trader/pkg/utils"
)

// ExchangeState is the slice of the exchange client recovery needs.
type ExchangeState interface {
	GetOpenOrders(ctx context.Context) ([]exchange.OpenOrder, error)
	GetOpenPositions(ctx context.Context) ([]exchange.OpenPosition, error)
}

// Service reconciles local state with the exchange.
type Service struct {
	store    store.Store
	exchange ExchangeState
	logger   zerolog.Logger
}

// NewService creates a recovery service.
func NewService(st store.Store, ex ExchangeState, logger zerolog.Logger) *Service {
	return &Service{store: st, exchange: ex, logger: logging.WithOperation(logger, "reconcile")}
}

// Reconcile fetches remote orders and positions and aligns local state:
// ghost orders (remote only) are imported, stale orders (local only)
// are marked CLOSED, and positions are overwritten from the exchange.
func (s *Service) Reconcile(ctx context.Context) error {
	s.logger.Info().Msg("Starting state reconciliation")

	// The remote fetches are idempotent, so transient API failures
	// during startup are retried.
	var remoteOrders []exchange.OpenOrder
	err := utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		var ferr error
		remoteOrders, ferr = s.exchange.GetOpenOrders(ctx)
		return ferr
	})
	if err != nil {
		return err
	}
	var remotePositions []exchange.OpenPosition
	err = utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		var ferr error
		remotePositions, ferr = s.exchange.GetOpenPositions(ctx)
		return ferr
	})
	if err != nil {
		return err
	}
	localOrders, err := s.store.ActiveOrders(ctx)
	if err != nil {
		return err
	}

	if err := s.reconcileOrders(ctx, localOrders, remoteOrders); err != nil {
		return err
	}
	if err := s.reconcilePositions(ctx, remotePositions); err != nil {
		return err
	}

	s.logger.Info().Msg("Reconciliation complete")
	return nil
}

func (s *Service) reconcileOrders(ctx context.Context, local []models.OrderRecord, remote []exchange.OpenOrder) error {
	remoteIDs := make(map[string]bool, len(remote))
	for _, o := range remote {
		remoteIDs[o.OrderID] = true
	}
	localIDs := make(map[string]bool, len(local))
	for _, o := range local {
		localIDs[o.OrderID] = true
	}

	for _, o := range remote {
		if localIDs[o.OrderID] {
			continue
		}
		s.logger.Warn().
			Str("order_id", o.OrderID).
			Str("symbol", o.Symbol).
			Msg("Ghost order found on exchange, importing")
		if err := s.store.SaveOrder(ctx, models.OrderRecord{
			OrderID: o.OrderID,
			Symbol:  o.Symbol,
			Side:    o.Side,
			Size:    o.Size,
			Status:  "OPEN",
		}); err != nil {
			return err
		}
	}

	for _, o := range local {
		if remoteIDs[o.OrderID] {
			continue
		}
		// Conservative assumption: the exchange no longer knows it,
		// so it is gone.
		s.logger.Warn().
			Str("order_id", o.OrderID).
			Msg("Local order not found on exchange, marking CLOSED")
		if err := s.store.UpdateOrderStatus(ctx, o.OrderID, "CLOSED"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) reconcilePositions(ctx context.Context, remote []exchange.OpenPosition) error {
	for _, pos := range remote {
		size := pos.Size
		if pos.Side == "short" {
			size = -size
		}
		s.logger.Info().
			Str("symbol", pos.Symbol).
			Float64("size", size).
			Msg("Updating position from exchange")
		if err := s.store.UpdatePosition(ctx, pos.Symbol, size, pos.Price); err != nil {
			return err
		}
	}
	return nil
}
