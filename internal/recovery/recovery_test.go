package recovery

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"kraken-trader/internal/exchange"
	"kraken-trader/internal/models"
	"kraken-trader/internal/store"
)

type fakeExchange struct {
	orders    []exchange.OpenOrder
	positions []exchange.OpenPosition
}

func (f *fakeExchange) GetOpenOrders(ctx context.Context) ([]exchange.OpenOrder, error) {
	return f.orders, nil
}

func (f *fakeExchange) GetOpenPositions(ctx context.Context) ([]exchange.OpenPosition, error) {
	return f.positions, nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReconcileImportsGhostOrders(t *testing.T) {
	st := newTestStore(t)
	ex := &fakeExchange{
		orders: []exchange.OpenOrder{
			{OrderID: "ghost-1", Symbol: "PI_XBTUSD", Side: "buy", Size: 1},
		},
	}

	svc := NewService(st, ex, zerolog.Nop())
	if err := svc.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}

	active, err := st.ActiveOrders(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].OrderID != "ghost-1" {
		t.Errorf("active orders = %+v, want imported ghost-1", active)
	}
}

func TestReconcileClosesStaleLocalOrders(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.SaveOrder(ctx, models.OrderRecord{
		OrderID: "stale-1",
		Symbol:  "PI_XBTUSD",
		Side:    "buy",
		Size:    1,
	}); err != nil {
		t.Fatal(err)
	}

	svc := NewService(st, &fakeExchange{}, zerolog.Nop())
	if err := svc.Reconcile(ctx); err != nil {
		t.Fatal(err)
	}

	active, _ := st.ActiveOrders(ctx)
	if len(active) != 0 {
		t.Errorf("active orders = %d, want 0 after stale close", len(active))
	}
}

func TestReconcileOverwritesPositionsFromExchange(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Local state says long 2, the exchange says short 1.
	if err := st.UpdatePosition(ctx, "PI_XBTUSD", 2, 40000); err != nil {
		t.Fatal(err)
	}

	ex := &fakeExchange{
		positions: []exchange.OpenPosition{
			{Symbol: "PI_XBTUSD", Side: "short", Size: 1, Price: 42000},
		},
	}
	svc := NewService(st, ex, zerolog.Nop())
	if err := svc.Reconcile(ctx); err != nil {
		t.Fatal(err)
	}

	rec, err := st.GetPosition(ctx, "PI_XBTUSD")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Size != -1 || rec.EntryPrice != 42000 {
		t.Errorf("position = %+v, want size -1 entry 42000", rec)
	}
}

func TestReconcileMatchedOrderStaysOpen(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.SaveOrder(ctx, models.OrderRecord{
		OrderID: "match-1",
		Symbol:  "PI_XBTUSD",
		Side:    "buy",
		Size:    1,
	}); err != nil {
		t.Fatal(err)
	}

	ex := &fakeExchange{
		orders: []exchange.OpenOrder{
			{OrderID: "match-1", Symbol: "PI_XBTUSD", Side: "buy", Size: 1},
		},
	}
	svc := NewService(st, ex, zerolog.Nop())
	if err := svc.Reconcile(ctx); err != nil {
		t.Fatal(err)
	}

	active, _ := st.ActiveOrders(ctx)
	if len(active) != 1 {
		t.Errorf("active orders = %d, want matched order kept open", len(active))
	}
}
