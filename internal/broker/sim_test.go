package broker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"kraken-trader/internal/events"
	"kraken-trader/internal/models"
)

func newTestBroker() *SimBroker {
	return NewSimBroker(SimBrokerConfig{
		InitialBalance: 10000,
		Logger:         zerolog.Nop(),
	})
}

func TestPlaceOrderWithoutMarketPriceIsSkipped(t *testing.T) {
	b := newTestBroker()

	err := b.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "PI_XBTUSD",
		Side:   models.SideBuy,
		Size:   1,
	})
	if err != nil {
		t.Fatalf("PlaceOrder = %v, want nil", err)
	}
	if got := b.Position("PI_XBTUSD"); got != 0 {
		t.Errorf("position = %v, want 0", got)
	}
	if got := b.Stats().TradeCount; got != 0 {
		t.Errorf("trade count = %d, want 0", got)
	}
}

func TestMarketOrderFillsAtLastPrice(t *testing.T) {
	b := newTestBroker()
	b.UpdateMarketState("PI_XBTUSD", 100, time.Now())

	if err := b.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "PI_XBTUSD",
		Side:   models.SideBuy,
		Size:   2,
	}); err != nil {
		t.Fatal(err)
	}

	stats := b.Stats()
	if stats.Balance != 9800 {
		t.Errorf("balance = %v, want 9800", stats.Balance)
	}
	if got := b.Position("PI_XBTUSD"); got != 2 {
		t.Errorf("position = %v, want 2", got)
	}
	// equity = 9800 + 2*100 = 10000, pnl = 0
	if stats.Equity != 10000 || stats.PnL != 0 {
		t.Errorf("equity/pnl = %v/%v, want 10000/0", stats.Equity, stats.PnL)
	}
}

func TestBracketTakeProfitFillsAndCancelsStop(t *testing.T) {
	b := newTestBroker()
	b.UpdateMarketState("PI_XBTUSD", 100, time.Now())

	if err := b.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "PI_XBTUSD",
		Side:   models.SideBuy,
		Size:   1,
		Params: OrderParams{StopLoss: 90, TakeProfit: 110},
	}); err != nil {
		t.Fatal(err)
	}
	if got := len(b.ActiveOrders()); got != 2 {
		t.Fatalf("active orders = %d, want 2", got)
	}

	// Between the brackets: nothing happens.
	b.UpdateMarketState("PI_XBTUSD", 105, time.Now())
	if got := len(b.ActiveOrders()); got != 2 {
		t.Fatalf("active orders after 105 = %d, want 2", got)
	}

	// Take-profit trigger: position flattens, the sibling stop goes too.
	b.UpdateMarketState("PI_XBTUSD", 110, time.Now())
	if got := b.Position("PI_XBTUSD"); got != 0 {
		t.Errorf("position = %v, want 0", got)
	}
	if got := len(b.ActiveOrders()); got != 0 {
		t.Errorf("active orders = %d, want 0", got)
	}
	// Bought at 100, sold at 110.
	if got := b.Stats().PnL; got != 10 {
		t.Errorf("pnl = %v, want 10", got)
	}
}

func TestBracketStopLossFillsAndCancelsTakeProfit(t *testing.T) {
	b := newTestBroker()
	b.UpdateMarketState("PI_XBTUSD", 100, time.Now())

	if err := b.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "PI_XBTUSD",
		Side:   models.SideBuy,
		Size:   1,
		Params: OrderParams{StopLoss: 90, TakeProfit: 110},
	}); err != nil {
		t.Fatal(err)
	}

	b.UpdateMarketState("PI_XBTUSD", 90, time.Now())
	if got := b.Position("PI_XBTUSD"); got != 0 {
		t.Errorf("position = %v, want 0", got)
	}
	if got := len(b.ActiveOrders()); got != 0 {
		t.Errorf("active orders = %d, want 0", got)
	}
	if got := b.Stats().PnL; got != -10 {
		t.Errorf("pnl = %v, want -10", got)
	}
}

func TestBracketFillsAtCurrentPriceNotTrigger(t *testing.T) {
	b := newTestBroker()
	b.UpdateMarketState("PI_XBTUSD", 100, time.Now())

	if err := b.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "PI_XBTUSD",
		Side:   models.SideBuy,
		Size:   1,
		Params: OrderParams{StopLoss: 90},
	}); err != nil {
		t.Fatal(err)
	}

	// Gap through the stop: the fill happens at the gapped price.
	b.UpdateMarketState("PI_XBTUSD", 80, time.Now())

	trades := b.Trades()
	last := trades[len(trades)-1]
	if last.Price != 80 {
		t.Errorf("stop fill price = %v, want 80 (current market)", last.Price)
	}
	if got := b.Stats().PnL; got != -20 {
		t.Errorf("pnl = %v, want -20", got)
	}
}

func TestShortBracket(t *testing.T) {
	b := newTestBroker()
	b.UpdateMarketState("PI_XBTUSD", 100, time.Now())

	if err := b.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "PI_XBTUSD",
		Side:   models.SideSell,
		Size:   1,
		Params: OrderParams{StopLoss: 110, TakeProfit: 80},
	}); err != nil {
		t.Fatal(err)
	}
	if got := b.Position("PI_XBTUSD"); got != -1 {
		t.Fatalf("position = %v, want -1", got)
	}

	// Short take-profit is a buy limit: triggers when price falls to it.
	b.UpdateMarketState("PI_XBTUSD", 80, time.Now())
	if got := b.Position("PI_XBTUSD"); got != 0 {
		t.Errorf("position = %v, want 0", got)
	}
	if got := b.Stats().PnL; got != 20 {
		t.Errorf("pnl = %v, want 20", got)
	}
}

func TestPlaceOrderPublishesFillAndBracketEvents(t *testing.T) {
	bus := events.NewBus()
	filled := make(chan events.Event, 1)
	placed := make(chan events.Event, 1)
	bus.Subscribe(events.EventTradeFilled, func(e events.Event) { filled <- e })
	bus.Subscribe(events.EventBracketPlaced, func(e events.Event) { placed <- e })

	b := NewSimBroker(SimBrokerConfig{
		InitialBalance: 10000,
		Bus:            bus,
		Logger:         zerolog.Nop(),
	})
	b.UpdateMarketState("PI_XBTUSD", 100, time.Now())

	if err := b.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "PI_XBTUSD",
		Side:   models.SideBuy,
		Size:   2,
		Params: OrderParams{StopLoss: 95, TakeProfit: 110},
	}); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-filled:
		if e.Data["symbol"] != "PI_XBTUSD" || e.Data["price"] != 100.0 {
			t.Errorf("fill data = %v", e.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("no fill event published")
	}

	select {
	case e := <-placed:
		if e.Data["stop_loss"] != 95.0 || e.Data["take_profit"] != 110.0 {
			t.Errorf("bracket data = %v", e.Data)
		}
		if e.Data["side"] != string(models.SideSell) {
			t.Errorf("bracket side = %v, want sell exit", e.Data["side"])
		}
	case <-time.After(time.Second):
		t.Fatal("no bracket event published")
	}
}

func TestStatsIsIdempotent(t *testing.T) {
	b := newTestBroker()
	b.UpdateMarketState("PI_XBTUSD", 100, time.Now())
	b.PlaceOrder(context.Background(), OrderRequest{
		Symbol: "PI_XBTUSD",
		Side:   models.SideBuy,
		Size:   1,
	})

	first := b.Stats()
	second := b.Stats()
	if first.Balance != second.Balance || first.Equity != second.Equity ||
		first.PnL != second.PnL || first.TradeCount != second.TradeCount {
		t.Errorf("Stats changed between calls: %+v vs %+v", first, second)
	}
}
