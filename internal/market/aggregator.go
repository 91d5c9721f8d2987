// Package market provides tick-to-candle aggregation and candle history.
package market

import (
	"time"

	"github.com/rs/zerolog"

	"kraken-trader/internal/models"
)

// Aggregator converts a tick stream into fixed-interval OHLCV candles.
// It is a two-state machine: either no candle is open, or exactly one is.
// One aggregator instance serves one symbol; instances are not safe for
// concurrent use.
type Aggregator struct {
	interval time.Duration
	current  *models.Candle
	bucket   time.Time
	logger   zerolog.Logger
}

// NewAggregator creates an aggregator for the given candle interval.
func NewAggregator(interval time.Duration, logger zerolog.Logger) *Aggregator {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Aggregator{
		interval: interval,
		logger:   logger,
	}
}

// OnTick accepts a tick and returns the completed candle when the tick's
// bucket rolls past the open one. Ticks whose bucket is earlier than the
// open bucket are dropped: the feed promises non-decreasing timestamps per
// symbol, so a late tick is stale data we cannot fold into an emitted candle.
func (a *Aggregator) OnTick(tick models.Tick) (models.Candle, bool) {
	bucket := tick.Timestamp.Truncate(a.interval)

	switch {
	case a.current == nil:
		a.open(tick, bucket)
		return models.Candle{}, false

	case bucket.After(a.bucket):
		closed := *a.current
		a.open(tick, bucket)
		return closed, true

	case bucket.Before(a.bucket):
		a.logger.Warn().
			Str("symbol", tick.Symbol).
			Time("tick_bucket", bucket).
			Time("open_bucket", a.bucket).
			Msg("Dropping out-of-order tick")
		return models.Candle{}, false

	default:
		c := a.current
		if tick.Price > c.High {
			c.High = tick.Price
		}
		if tick.Price < c.Low {
			c.Low = tick.Price
		}
		c.Close = tick.Price
		c.Volume += tick.Volume
		return models.Candle{}, false
	}
}

// Current returns a copy of the open candle, if any.
func (a *Aggregator) Current() (models.Candle, bool) {
	if a.current == nil {
		return models.Candle{}, false
	}
	return *a.current, true
}

func (a *Aggregator) open(tick models.Tick, bucket time.Time) {
	a.current = &models.Candle{
		Symbol:   tick.Symbol,
		Time:     bucket,
		Open:     tick.Price,
		High:     tick.Price,
		Low:      tick.Price,
		Close:    tick.Price,
		Volume:   tick.Volume,
		Interval: a.interval,
	}
	a.bucket = bucket
}
