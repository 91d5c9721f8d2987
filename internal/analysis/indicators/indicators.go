// Package indicators provides technical indicator calculations over candle
// close series. All functions are pure: they recompute from the input slice
// on every call, which is acceptable because the candle buffer is capped.
package indicators

import (
	"math"
)

// SMA calculates the simple moving average of values. The result is aligned
// with the input; positions with fewer than period values are NaN.
func SMA(values []float64, period int) []float64 {
	result := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return result
	}

	for i := period - 1; i < len(values); i++ {
		result[i] = mean(values[i-period+1 : i+1])
	}

	return result
}

// LastSMA returns the most recent SMA value, or NaN if there is not enough
// data.
func LastSMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	return mean(values[len(values)-period:])
}

// EMA calculates the exponential moving average with span-style smoothing
// (alpha = 2/(period+1)), seeded directly from the first value with no
// warm-up bias correction.
func EMA(values []float64, period int) []float64 {
	result := nanSlice(len(values))
	if period <= 0 || len(values) == 0 {
		return result
	}

	alpha := 2.0 / float64(period+1)
	result[0] = values[0]
	for i := 1; i < len(values); i++ {
		result[i] = alpha*values[i] + (1-alpha)*result[i-1]
	}

	return result
}

// RSI calculates the Relative Strength Index using Wilder's smoothing:
// gains and losses from consecutive differences are each smoothed with an
// exponential average of alpha = 1/period, seeded from the first difference.
// When the smoothed loss is zero the RSI saturates at 100.
func RSI(values []float64, period int) []float64 {
	result := nanSlice(len(values))
	if period <= 0 || len(values) < 2 {
		return result
	}

	alpha := 1.0 / float64(period)

	var avgGain, avgLoss float64
	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		if i == 1 {
			avgGain = gain
			avgLoss = loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}

		switch {
		case avgLoss == 0 && avgGain == 0:
			// Flat series carries no direction.
			result[i] = math.NaN()
		case avgLoss == 0:
			result[i] = 100
		default:
			rs := avgGain / avgLoss
			result[i] = 100 - (100 / (1 + rs))
		}
	}

	return result
}

// LastRSI returns the most recent RSI value, or NaN if there is not enough
// data.
func LastRSI(values []float64, period int) float64 {
	series := RSI(values, period)
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}
