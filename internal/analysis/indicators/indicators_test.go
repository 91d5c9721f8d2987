package indicators

import (
	"math"
	"testing"
)

func TestSMAWarmupIsNaN(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	result := SMA(values, 3)

	if len(result) != len(values) {
		t.Fatalf("len = %d, want %d", len(result), len(values))
	}
	for i := 0; i < 2; i++ {
		if !math.IsNaN(result[i]) {
			t.Errorf("result[%d] = %v, want NaN during warm-up", i, result[i])
		}
	}
	if result[2] != 2 {
		t.Errorf("result[2] = %v, want 2", result[2])
	}
	if result[4] != 4 {
		t.Errorf("result[4] = %v, want 4", result[4])
	}
}

func TestLastSMA(t *testing.T) {
	if got := LastSMA([]float64{1, 2, 3, 4}, 2); got != 3.5 {
		t.Errorf("LastSMA = %v, want 3.5", got)
	}
	if got := LastSMA([]float64{1}, 2); !math.IsNaN(got) {
		t.Errorf("LastSMA with short series = %v, want NaN", got)
	}
}

func TestEMASeedsFromFirstValue(t *testing.T) {
	values := []float64{10, 20, 30}
	result := EMA(values, 3) // alpha = 0.5

	if result[0] != 10 {
		t.Errorf("result[0] = %v, want seed 10", result[0])
	}
	if result[1] != 15 {
		t.Errorf("result[1] = %v, want 15", result[1])
	}
	if result[2] != 22.5 {
		t.Errorf("result[2] = %v, want 22.5", result[2])
	}
}

func TestRSISaturatesAt100OnMonotoneRise(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100 + float64(i)
	}

	if got := LastRSI(values, 14); got != 100 {
		t.Errorf("RSI of monotone rise = %v, want 100", got)
	}
}

func TestRSIIsNearZeroOnMonotoneFall(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 200 - float64(i)
	}

	got := LastRSI(values, 14)
	if math.IsNaN(got) || got > 1 {
		t.Errorf("RSI of monotone fall = %v, want near 0", got)
	}
}

func TestRSIFlatSeriesIsNaN(t *testing.T) {
	values := []float64{50, 50, 50, 50, 50}
	if got := LastRSI(values, 3); !math.IsNaN(got) {
		t.Errorf("RSI of flat series = %v, want NaN", got)
	}
}

func TestRSIWithinBounds(t *testing.T) {
	values := []float64{44, 47, 45, 50, 48, 52, 49, 53, 51, 55, 50, 54, 52, 56, 53}
	series := RSI(values, 14)

	for i, v := range series {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Errorf("RSI[%d] = %v, out of [0,100]", i, v)
		}
	}
}
