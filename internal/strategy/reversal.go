package strategy

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"kraken-trader/internal/analysis/indicators"
	"kraken-trader/internal/broker"
	"kraken-trader/internal/events"
	"kraken-trader/internal/inference"
	"kraken-trader/internal/logging"
	"kraken-trader/internal/market"
	"kraken-trader/internal/models"
)

// contextLookback is the number of closed candles required before the
// pattern can be evaluated: the higher-high/lower-low context reaches six
// candles back.
const contextLookback = 6

// ReversalConfig holds reversal strategy configuration.
type ReversalConfig struct {
	Symbol        string
	Interval      time.Duration
	BufferSize    int
	MAPeriod      int     // directional filter moving average period
	FilterBearish bool    // require close above MA for short entries
	FilterBullish bool    // require close below MA for long entries
	RiskFraction  float64 // fraction of equity risked per entry
	StopBuffer    float64 // stop distance beyond the signal candle extreme
}

// Reversal trades a multi-candle reversal pattern: a green/red exhaustion
// sequence whose last close breaks the prior candle's extreme, confirmed
// by strictly rising highs (shorts) or falling lows (longs) over the
// lookback window. Entries are sized by fixed-fractional risk and split
// into two halves with take-profits at 2x and 3x the risk distance, each
// half bracketed by its own OCO pair.
//
// One instance owns one symbol's aggregator and buffer. Both signal
// directions are checked on every closed candle, bearish first; the
// pattern conditions are mutually exclusive in practice but the order is
// the documented tie-break.
type Reversal struct {
	cfg        ReversalConfig
	aggregator *market.Aggregator
	buffer     *market.Buffer
	broker     broker.Broker
	gate       *inference.Gate
	bus        *events.Bus
	logger     zerolog.Logger
}

// NewReversal creates a reversal strategy for one symbol. The broker, gate
// and bus are optional: without a broker the strategy only detects, and
// without a gate every setup is approved.
func NewReversal(cfg ReversalConfig, b broker.Broker, gate *inference.Gate, bus *events.Bus, logger zerolog.Logger) *Reversal {
	if cfg.MAPeriod <= 0 {
		cfg.MAPeriod = 50
	}
	if cfg.RiskFraction <= 0 {
		cfg.RiskFraction = 0.03
	}
	if cfg.StopBuffer <= 0 {
		cfg.StopBuffer = 0.001
	}

	logger = logging.WithSymbol(logger, cfg.Symbol).With().Str("strategy", "reversal").Logger()

	return &Reversal{
		cfg:        cfg,
		aggregator: market.NewAggregator(cfg.Interval, logger),
		buffer:     market.NewBuffer(cfg.BufferSize),
		broker:     b,
		gate:       gate,
		bus:        bus,
		logger:     logger,
	}
}

// OnTick aggregates the tick and evaluates the pattern when a candle
// closes.
func (r *Reversal) OnTick(ctx context.Context, tick models.Tick) {
	closed, ok := r.aggregator.OnTick(tick)
	if !ok {
		return
	}
	r.logger.Debug().
		Time("bucket", closed.Time).
		Float64("close", closed.Close).
		Msg("Candle closed")
	r.OnCandle(ctx, closed)
}

// OnCandle records a closed candle and runs one evaluation pass.
func (r *Reversal) OnCandle(ctx context.Context, candle models.Candle) {
	r.buffer.Add(candle)
	r.Evaluate(ctx)
}

// Evaluate runs pattern detection over the current buffer snapshot and
// places entries for any approved setup.
func (r *Reversal) Evaluate(ctx context.Context) {
	if r.buffer.Len() < contextLookback {
		return
	}

	c0 := r.buffer.At(-1) // signal candle
	c1 := r.buffer.At(-2)
	c2 := r.buffer.At(-3)
	highs := r.buffer.Highs()
	lows := r.buffer.Lows()

	ma := indicators.LastSMA(r.buffer.Closes(), r.cfg.MAPeriod)
	if math.IsNaN(ma) && (r.cfg.FilterBearish || r.cfg.FilterBullish) {
		return
	}

	if r.bearishSetup(c0, c1, c2, highs, ma) {
		r.enter(ctx, DirectionBearish, c0, c1)
	}

	if r.bullishSetup(c0, c1, c2, lows, ma) {
		r.enter(ctx, DirectionBullish, c0, c1)
	}
}

// bearishSetup matches either exhaustion variant breaking below the prior
// low, inside a strictly higher-high context, optionally above the MA.
func (r *Reversal) bearishSetup(c0, c1, c2 models.Candle, highs []float64, ma float64) bool {
	patternA := c2.Green() && c1.Red() && c0.Close < c1.Low
	patternB := c1.Green() && c0.Red() && c0.Close < c1.Low
	if !patternA && !patternB {
		return false
	}

	n := len(highs)
	higherHighs := highs[n-3] > highs[n-5] &&
		highs[n-2] > highs[n-6] &&
		highs[n-1] > highs[n-5] &&
		highs[n-1] > highs[n-6]
	if !higherHighs {
		return false
	}

	if r.cfg.FilterBearish {
		return !math.IsNaN(ma) && c0.Close > ma
	}
	return true
}

// bullishSetup is the mirror: break above the prior high inside a
// strictly lower-low context, optionally below the MA.
func (r *Reversal) bullishSetup(c0, c1, c2 models.Candle, lows []float64, ma float64) bool {
	patternA := c2.Red() && c1.Green() && c0.Close > c1.High
	patternB := c1.Red() && c0.Green() && c0.Close > c1.High
	if !patternA && !patternB {
		return false
	}

	n := len(lows)
	lowerLows := lows[n-3] < lows[n-5] &&
		lows[n-2] < lows[n-6] &&
		lows[n-1] < lows[n-5] &&
		lows[n-1] < lows[n-6]
	if !lowerLows {
		return false
	}

	if r.cfg.FilterBullish {
		return !math.IsNaN(ma) && c0.Close < ma
	}
	return true
}

// enter checks the position gate and the inference gate, closes any
// opposing position, and opens two half-size bracketed entries.
func (r *Reversal) enter(ctx context.Context, direction Direction, c0, c1 models.Candle) {
	var currentPos float64
	if r.broker != nil {
		currentPos = r.broker.Position(r.cfg.Symbol)
	}

	// A position already aligned with the signal blocks re-entry; an
	// opposing one gets closed below.
	if direction == DirectionBearish && currentPos < 0 {
		return
	}
	if direction == DirectionBullish && currentPos > 0 {
		return
	}

	verdict := inference.Verdict{Approved: true}
	if r.gate != nil {
		verdict = r.gate.Approve(ctx, r.buffer.Last(inference.FeatureWindow))
	}
	logging.LogSignal(r.logger, r.cfg.Symbol, string(direction), currentPos, verdict.Approved)
	if !verdict.Approved {
		return
	}

	if r.bus != nil {
		r.bus.Publish(events.Event{
			Type: events.EventSignalGenerated,
			Data: map[string]interface{}{
				"symbol":    r.cfg.Symbol,
				"direction": string(direction),
				"close":     c0.Close,
			},
		})
	}

	if r.broker == nil {
		return
	}

	entrySide := models.SideSell
	closeSide := models.SideSell
	if direction == DirectionBullish {
		entrySide = models.SideBuy
		closeSide = models.SideBuy
	}

	// Close the opposing position at market before reversing.
	if currentPos != 0 {
		closeReq := broker.OrderRequest{
			Symbol: r.cfg.Symbol,
			Side:   closeSide,
			Type:   models.OrderTypeMarket,
			Size:   math.Abs(currentPos),
		}
		if err := r.broker.PlaceOrder(ctx, closeReq); err != nil {
			r.logger.Error().Err(err).Msg("Failed to close opposing position")
			return
		}
		r.logger.Info().
			Float64("size", math.Abs(currentPos)).
			Msg("Closed opposing position")
	}

	// Stop sits just beyond the signal candle's extreme; the entry is the
	// breakout close. Risk per unit prices the fixed-fractional size.
	entry := c0.Close
	var stop, riskPerUnit float64
	if direction == DirectionBearish {
		stop = c1.High * (1 + r.cfg.StopBuffer)
		riskPerUnit = stop - entry
	} else {
		stop = c1.Low * (1 - r.cfg.StopBuffer)
		riskPerUnit = entry - stop
	}

	if riskPerUnit <= 0 {
		r.logger.Warn().
			Float64("entry", entry).
			Float64("stop", stop).
			Msg("Non-positive risk per unit, skipping entry")
		return
	}

	equity := r.broker.Stats().Equity
	riskAmount := equity * r.cfg.RiskFraction
	qty := riskAmount / riskPerUnit
	if qty <= 0 {
		return
	}

	var tp1, tp2 float64
	if direction == DirectionBearish {
		tp1 = entry - 2*riskPerUnit
		tp2 = entry - 3*riskPerUnit
	} else {
		tp1 = entry + 2*riskPerUnit
		tp2 = entry + 3*riskPerUnit
	}

	r.logger.Info().
		Str("direction", string(direction)).
		Float64("qty", qty).
		Float64("stop", stop).
		Float64("risk_amount", riskAmount).
		Msg("Opening split entry")

	half := qty / 2
	for _, tp := range []float64{tp1, tp2} {
		req := broker.OrderRequest{
			Symbol: r.cfg.Symbol,
			Side:   entrySide,
			Type:   models.OrderTypeMarket,
			Size:   half,
			Params: broker.OrderParams{
				StopLoss:   stop,
				TakeProfit: tp,
				Confidence: verdict.Score,
			},
		}
		if err := r.broker.PlaceOrder(ctx, req); err != nil {
			r.logger.Error().Err(err).Msg("Entry order failed")
			return
		}
	}
}
