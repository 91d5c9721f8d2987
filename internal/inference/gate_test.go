package inference

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"kraken-trader/internal/models"
)

func windowCandles(n int) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		candles[i] = models.Candle{
			Open:   float64(100 + i),
			High:   float64(105 + i),
			Low:    float64(95 + i),
			Close:  float64(102 + i),
			Volume: float64(10 * (i + 1)),
		}
	}
	return candles
}

func TestGateWithoutScorerPassesThrough(t *testing.T) {
	g := NewGate(GateConfig{Logger: zerolog.Nop()})
	defer g.Close()

	v := g.Approve(context.Background(), windowCandles(5))
	if !v.Approved {
		t.Error("gate without scorer should approve")
	}
	if v.Score != nil {
		t.Errorf("gate without scorer should claim no score, got %v", *v.Score)
	}

	// Even an empty window passes: there is nothing to score.
	if v := g.Approve(context.Background(), nil); !v.Approved {
		t.Error("gate without scorer should approve regardless of window")
	}
}

func TestGateRejectsShortWindow(t *testing.T) {
	g := NewGate(GateConfig{
		Scorer: &StaticScorer{Value: 0.9},
		Logger: zerolog.Nop(),
	})
	defer g.Close()

	if v := g.Approve(context.Background(), windowCandles(4)); v.Approved {
		t.Error("fewer than five candles should be rejected")
	}
}

func TestGateThreshold(t *testing.T) {
	g := NewGate(GateConfig{
		Scorer:        &StaticScorer{Value: 0.7},
		MinConfidence: 0.5,
		Logger:        zerolog.Nop(),
	})
	defer g.Close()

	v := g.Approve(context.Background(), windowCandles(5))
	if !v.Approved {
		t.Error("score 0.7 should pass threshold 0.5")
	}
	if v.Score == nil || *v.Score != 0.7 {
		t.Errorf("verdict score = %v, want 0.7", v.Score)
	}

	low := NewGate(GateConfig{
		Scorer:        &StaticScorer{Value: 0.3},
		MinConfidence: 0.5,
		Logger:        zerolog.Nop(),
	})
	defer low.Close()

	if v := low.Approve(context.Background(), windowCandles(5)); v.Approved {
		t.Error("score 0.3 should fail threshold 0.5")
	}
}

func TestGateFailsOpenOnScorerError(t *testing.T) {
	g := NewGate(GateConfig{
		Scorer:        &StaticScorer{Err: errors.New("model unavailable")},
		MinConfidence: 0.9,
		Logger:        zerolog.Nop(),
	})
	defer g.Close()

	v := g.Approve(context.Background(), windowCandles(5))
	if !v.Approved {
		t.Error("scorer error should fail open")
	}
	if v.Score != nil {
		t.Error("failed-open verdict should claim no score")
	}
}

type slowScorer struct {
	delay time.Duration
}

func (s *slowScorer) Score(ctx context.Context, features []float64) (float64, error) {
	select {
	case <-time.After(s.delay):
		return 0.0, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func TestGateFailsOpenOnTimeout(t *testing.T) {
	g := NewGate(GateConfig{
		Scorer:        &slowScorer{delay: time.Second},
		MinConfidence: 0.9,
		Timeout:       20 * time.Millisecond,
		Logger:        zerolog.Nop(),
	})
	defer g.Close()

	start := time.Now()
	v := g.Approve(context.Background(), windowCandles(5))
	if !v.Approved {
		t.Error("timeout should fail open")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("timed-out check should return promptly")
	}
}

func TestFeaturesFlattensLastFiveCandles(t *testing.T) {
	candles := windowCandles(7)
	features := Features(candles)

	if len(features) != FeatureWindow*5 {
		t.Fatalf("feature length = %d, want %d", len(features), FeatureWindow*5)
	}
	// The first feature row comes from candles[2], the oldest kept.
	if features[0] != candles[2].Open || features[4] != candles[2].Volume {
		t.Errorf("first row = %v..%v, want from third candle", features[0], features[4])
	}
	last := candles[6]
	tail := features[len(features)-5:]
	if tail[0] != last.Open || tail[3] != last.Close {
		t.Errorf("last row = %v, want from newest candle", tail)
	}
}
