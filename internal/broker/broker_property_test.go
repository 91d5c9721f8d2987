package broker

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"kraken-trader/internal/models"
)

type orderStep struct {
	Price float64
	Size  float64
	Buy   bool
}

func orderStepGen() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(10.0, 1000.0),
		gen.Float64Range(0.01, 5.0),
		gen.Bool(),
	).Map(func(vals []interface{}) orderStep {
		return orderStep{
			Price: vals[0].(float64),
			Size:  vals[1].(float64),
			Buy:   vals[2].(bool),
		}
	})
}

// Property: after any sequence of market orders, the cash balance equals
// the initial balance minus the signed sum of fill costs, the position
// equals the signed sum of fill sizes, and equity reconciles to
// balance + position * last price.
func TestProperty_CashAccountingReconciles(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("balance, position and equity reconcile", prop.ForAll(
		func(steps []orderStep) bool {
			b := NewSimBroker(SimBrokerConfig{
				InitialBalance: 10000,
				Logger:         zerolog.Nop(),
			})

			expectedBalance := 10000.0
			expectedPosition := 0.0
			lastPrice := 0.0

			for _, step := range steps {
				b.UpdateMarketState("PI_XBTUSD", step.Price, time.Now())
				lastPrice = step.Price

				side := models.SideSell
				if step.Buy {
					side = models.SideBuy
				}
				if err := b.PlaceOrder(context.Background(), OrderRequest{
					Symbol: "PI_XBTUSD",
					Side:   side,
					Size:   step.Size,
				}); err != nil {
					return false
				}

				if step.Buy {
					expectedBalance -= step.Price * step.Size
					expectedPosition += step.Size
				} else {
					expectedBalance += step.Price * step.Size
					expectedPosition -= step.Size
				}
			}

			stats := b.Stats()
			const eps = 1e-6
			if math.Abs(stats.Balance-expectedBalance) > eps {
				return false
			}
			if math.Abs(b.Position("PI_XBTUSD")-expectedPosition) > eps {
				return false
			}
			expectedEquity := expectedBalance + expectedPosition*lastPrice
			if math.Abs(stats.Equity-expectedEquity) > eps {
				return false
			}
			return stats.TradeCount == len(steps)
		},
		gen.SliceOf(orderStepGen()),
	))

	properties.TestingRun(t)
}

// Property: a bracket pair never double-fills. Whatever prices follow the
// entry, at most one of the pair's orders executes and afterwards no
// order with that bracket id remains active.
func TestProperty_OCOBracketAtomicity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("at most one bracket order fills per pair", prop.ForAll(
		func(entry float64, stopDist, tpDist float64, prices []float64) bool {
			b := NewSimBroker(SimBrokerConfig{
				InitialBalance: 100000,
				Logger:         zerolog.Nop(),
			})

			b.UpdateMarketState("PI_XBTUSD", entry, time.Now())
			if err := b.PlaceOrder(context.Background(), OrderRequest{
				Symbol: "PI_XBTUSD",
				Side:   models.SideBuy,
				Size:   1,
				Params: OrderParams{
					StopLoss:   entry - stopDist,
					TakeProfit: entry + tpDist,
				},
			}); err != nil {
				return false
			}

			for _, p := range prices {
				b.UpdateMarketState("PI_XBTUSD", p, time.Now())
			}

			// One entry fill, at most one exit fill.
			if got := b.Stats().TradeCount; got > 2 {
				return false
			}
			remaining := len(b.ActiveOrders())
			if remaining != 0 && remaining != 2 {
				return false
			}
			// An exit fill means the position is flat again.
			if b.Stats().TradeCount == 2 && b.Position("PI_XBTUSD") != 0 {
				return false
			}
			return true
		},
		gen.Float64Range(100.0, 1000.0),
		gen.Float64Range(1.0, 50.0),
		gen.Float64Range(1.0, 50.0),
		gen.SliceOf(gen.Float64Range(1.0, 2000.0)),
	))

	properties.TestingRun(t)
}
