package broker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kraken-trader/internal/events"
	"kraken-trader/internal/logging"
	"kraken-trader/internal/models"
)

// SimBroker simulates order execution for paper trading and backtests.
// It owns the cash balance, per-symbol signed positions, the append-only
// trade ledger, and the set of pending bracket orders. Market orders fill
// immediately at the last seen price; bracket orders resolve against
// subsequent price updates.
//
// All state lives behind one mutex: strategies for different symbols may
// run concurrently but share the balance and ledger.
type SimBroker struct {
	initialBalance float64
	balance        float64
	positions      map[string]float64
	lastPrice      map[string]float64
	lastTime       map[string]time.Time
	trades         []models.Trade
	active         []models.BracketOrder

	bus    *events.Bus
	logger zerolog.Logger
	mu     sync.RWMutex
}

// SimBrokerConfig holds configuration for the simulated broker.
type SimBrokerConfig struct {
	InitialBalance float64
	Bus            *events.Bus
	Logger         zerolog.Logger
}

// NewSimBroker creates a new simulated broker.
func NewSimBroker(cfg SimBrokerConfig) *SimBroker {
	balance := cfg.InitialBalance
	if balance == 0 {
		balance = 10000
	}

	return &SimBroker{
		initialBalance: balance,
		balance:        balance,
		positions:      make(map[string]float64),
		lastPrice:      make(map[string]float64),
		lastTime:       make(map[string]time.Time),
		bus:            cfg.Bus,
		logger:         cfg.Logger,
	}
}

// UpdateMarketState records the latest price for a symbol and resolves any
// pending bracket orders whose trigger condition it satisfies. Triggered
// orders fill at the current market price, not at the trigger price;
// slippage is implicit.
func (s *SimBroker) UpdateMarketState(symbol string, price float64, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastPrice[symbol] = price
	s.lastTime[symbol] = ts
	s.checkTriggers(symbol, price, ts)
}

// checkTriggers fires matching bracket orders and removes each fill's OCO
// sibling in the same pass. At most one order per bracket pair ever fills:
// once a pair's ID is marked filled, its sibling is skipped even if the
// price satisfies both triggers. Caller must hold the lock.
func (s *SimBroker) checkTriggers(symbol string, price float64, ts time.Time) {
	filled := make(map[string]bool)

	for _, order := range s.active {
		if order.Symbol != symbol || filled[order.BracketID] {
			continue
		}
		if !triggerMatches(order, price) {
			continue
		}

		s.executeTrade(order.Symbol, order.Side, order.Size, price, ts, order.Type)
		filled[order.BracketID] = true
	}

	if len(filled) == 0 {
		return
	}

	remaining := s.active[:0]
	for _, order := range s.active {
		if !filled[order.BracketID] {
			remaining = append(remaining, order)
		}
	}
	s.active = remaining
}

// triggerMatches reports whether the current price fires the order.
// Stops trigger against the position (sell stop on price falling to the
// trigger, buy stop on price rising); limits trigger in the profit
// direction (sell limit on price rising, buy limit on price falling).
func triggerMatches(order models.BracketOrder, price float64) bool {
	switch order.Side {
	case models.SideSell:
		if order.Type == models.OrderTypeStop {
			return price <= order.Price
		}
		return price >= order.Price
	case models.SideBuy:
		if order.Type == models.OrderTypeStop {
			return price >= order.Price
		}
		return price <= order.Price
	}
	return false
}

// executeTrade applies a fill to position and balance and appends it to
// the ledger. Accounting is pure cash-on-fill: buys cost price*size, sells
// credit price*size, no margin model. Caller must hold the lock.
func (s *SimBroker) executeTrade(symbol string, side models.OrderSide, size, price float64, ts time.Time, kind models.OrderType) {
	cost := price * size
	if side == models.SideBuy {
		s.positions[symbol] += size
		s.balance -= cost
	} else {
		s.positions[symbol] -= size
		s.balance += cost
	}

	s.trades = append(s.trades, models.Trade{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		Size:      size,
		Price:     price,
		Timestamp: ts,
		Kind:      kind,
	})

	logging.LogFill(s.logger, symbol, string(side), string(kind), size, price)

	if s.bus != nil {
		s.bus.PublishTradeFilled(symbol, string(side), string(kind), size, price)
	}
}

// PlaceOrder fills a market order immediately at the last seen price and
// registers stop/take-profit brackets when requested. Orders for symbols
// with no market price yet are logged and dropped; the decision is simply
// skipped, never surfaced as an error.
func (s *SimBroker) PlaceOrder(ctx context.Context, req OrderRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.lastPrice[req.Symbol]
	if !ok || price <= 0 {
		s.logger.Warn().
			Str("symbol", req.Symbol).
			Str("side", string(req.Side)).
			Float64("size", req.Size).
			Msg("Order skipped: no market price yet")
		return nil
	}

	s.executeTrade(req.Symbol, req.Side, req.Size, price, s.lastTime[req.Symbol], models.OrderTypeMarket)

	if req.Params.StopLoss > 0 || req.Params.TakeProfit > 0 {
		bracketID := uuid.NewString()
		exitSide := req.Side.Opposite()

		if req.Params.StopLoss > 0 {
			s.active = append(s.active, models.BracketOrder{
				Symbol:    req.Symbol,
				Side:      exitSide,
				Size:      req.Size,
				Price:     req.Params.StopLoss,
				Type:      models.OrderTypeStop,
				BracketID: bracketID,
			})
			s.logger.Info().
				Str("symbol", req.Symbol).
				Str("side", string(exitSide)).
				Float64("trigger", req.Params.StopLoss).
				Msg("Placed stop")
		}

		if req.Params.TakeProfit > 0 {
			s.active = append(s.active, models.BracketOrder{
				Symbol:    req.Symbol,
				Side:      exitSide,
				Size:      req.Size,
				Price:     req.Params.TakeProfit,
				Type:      models.OrderTypeLimit,
				BracketID: bracketID,
			})
			s.logger.Info().
				Str("symbol", req.Symbol).
				Str("side", string(exitSide)).
				Float64("trigger", req.Params.TakeProfit).
				Msg("Placed limit")
		}

		if s.bus != nil {
			s.bus.PublishBracketPlaced(req.Symbol, string(exitSide), req.Size,
				req.Params.StopLoss, req.Params.TakeProfit)
		}
	}

	return nil
}

// Position returns the signed position for a symbol.
func (s *SimBroker) Position(symbol string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positions[symbol]
}

// Stats returns balance, equity (balance plus mark-to-market value of all
// positions), pnl against the initial balance, the cumulative trade count
// and all non-zero positions.
func (s *SimBroker) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	equity := s.balance
	positions := make(map[string]float64)
	for symbol, size := range s.positions {
		if size == 0 {
			continue
		}
		positions[symbol] = size
		equity += size * s.lastPrice[symbol]
	}

	return models.Stats{
		Balance:    s.balance,
		Equity:     equity,
		PnL:        equity - s.initialBalance,
		TradeCount: len(s.trades),
		Positions:  positions,
	}
}

// ActiveOrders returns a copy of the pending bracket orders.
func (s *SimBroker) ActiveOrders() []models.BracketOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.BracketOrder, len(s.active))
	copy(out, s.active)
	return out
}

// Trades returns a copy of the trade ledger.
func (s *SimBroker) Trades() []models.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

// Ensure SimBroker implements the Broker interface.
var _ Broker = (*SimBroker)(nil)
