package risk

import (
	"context"

	"kraken-trader/internal/broker"
	"kraken-trader/internal/events"
	"kraken-trader/internal/models"
)

// SafeBroker is a proxy that wraps any broker and enforces risk rules
// before forwarding orders. It exposes the same Broker contract as the
// wrapped implementation, so proxies can stack for layered limits.
type SafeBroker struct {
	inner   broker.Broker
	manager *Manager
	bus     *events.Bus
}

// NewSafeBroker wraps a broker with a risk manager. Rejections are
// published on the bus so observers can surface them; a nil bus disables
// that.
func NewSafeBroker(inner broker.Broker, manager *Manager, bus *events.Bus) *SafeBroker {
	return &SafeBroker{
		inner:   inner,
		manager: manager,
		bus:     bus,
	}
}

// PlaceOrder validates the order and forwards it unchanged to the inner
// broker. Rejected orders are dropped without error: the caller's decision
// flow continues as if the order never existed.
func (s *SafeBroker) PlaceOrder(ctx context.Context, req broker.OrderRequest) error {
	if !s.manager.ValidateConfidence(req) {
		s.publishRejection(req, "low confidence")
		return nil
	}

	currentPos := s.inner.Position(req.Symbol)
	if !s.manager.ValidateExposure(currentPos, req) {
		s.publishRejection(req, "max position limit")
		return nil
	}

	return s.inner.PlaceOrder(ctx, req)
}

func (s *SafeBroker) publishRejection(req broker.OrderRequest, reason string) {
	if s.bus == nil {
		return
	}
	s.bus.PublishOrderRejected(req.Symbol, string(req.Side), reason, req.Size)
}

// Position delegates to the inner broker.
func (s *SafeBroker) Position(symbol string) float64 {
	return s.inner.Position(symbol)
}

// Stats delegates to the inner broker.
func (s *SafeBroker) Stats() models.Stats {
	return s.inner.Stats()
}

// Ensure SafeBroker implements the Broker interface.
var _ broker.Broker = (*SafeBroker)(nil)
