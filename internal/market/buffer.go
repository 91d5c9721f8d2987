package market

import (
	"sort"

	"kraken-trader/internal/models"
)

// DefaultBufferSize is the default maximum number of candles retained.
const DefaultBufferSize = 1000

// Buffer is a bounded rolling history of closed candles, ordered by bucket
// time and unique per bucket (last write wins). Each strategy instance owns
// exactly one buffer; it is not safe for concurrent use.
type Buffer struct {
	maxSize int
	candles []models.Candle
}

// NewBuffer creates a buffer capped at maxSize candles.
func NewBuffer(maxSize int) *Buffer {
	if maxSize <= 0 {
		maxSize = DefaultBufferSize
	}
	return &Buffer{
		maxSize: maxSize,
		candles: make([]models.Candle, 0, maxSize),
	}
}

// Add inserts or replaces the candle for its bucket time, keeps the buffer
// ordered by time, and evicts the oldest candle when over capacity.
func (b *Buffer) Add(candle models.Candle) {
	idx := sort.Search(len(b.candles), func(i int) bool {
		return !b.candles[i].Time.Before(candle.Time)
	})

	if idx < len(b.candles) && b.candles[idx].Time.Equal(candle.Time) {
		b.candles[idx] = candle
	} else {
		b.candles = append(b.candles, models.Candle{})
		copy(b.candles[idx+1:], b.candles[idx:])
		b.candles[idx] = candle
	}

	if len(b.candles) > b.maxSize {
		b.candles = b.candles[len(b.candles)-b.maxSize:]
	}
}

// Len returns the number of candles held.
func (b *Buffer) Len() int {
	return len(b.candles)
}

// At returns the candle at the given negative offset from the end:
// At(-1) is the most recent candle.
func (b *Buffer) At(offset int) models.Candle {
	return b.candles[len(b.candles)+offset]
}

// Candles returns the current snapshot, oldest first. The returned slice
// is the buffer's backing storage and must not be mutated.
func (b *Buffer) Candles() []models.Candle {
	return b.candles
}

// Last returns up to n most recent candles, oldest first.
func (b *Buffer) Last(n int) []models.Candle {
	if n >= len(b.candles) {
		return b.candles
	}
	return b.candles[len(b.candles)-n:]
}

// Closes returns the close series, oldest first.
func (b *Buffer) Closes() []float64 {
	out := make([]float64, len(b.candles))
	for i, c := range b.candles {
		out[i] = c.Close
	}
	return out
}

// Highs returns the high series, oldest first.
func (b *Buffer) Highs() []float64 {
	out := make([]float64, len(b.candles))
	for i, c := range b.candles {
		out[i] = c.High
	}
	return out
}

// Lows returns the low series, oldest first.
func (b *Buffer) Lows() []float64 {
	out := make([]float64, len(b.candles))
	for i, c := range b.candles {
		out[i] = c.Low
	}
	return out
}
