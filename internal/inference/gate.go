// Package inference provides the AI confidence gate that filters strategy
// signals through an opaque scoring function.
package inference

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"kraken-trader/internal/models"
)

// FeatureWindow is the number of trailing candles flattened into the
// feature vector (5 candles x OHLCV = 25 values).
const FeatureWindow = 5

// Scorer is the opaque scoring capability. Implementations return a
// confidence score in [0,1] for the given feature vector. The gate never
// couples to any particular model runtime.
type Scorer interface {
	Score(ctx context.Context, features []float64) (float64, error)
}

// Verdict is the outcome of a gate check. Score is nil when the check
// produced no confidence claim (no scorer configured, or scoring failed
// and the gate failed open).
type Verdict struct {
	Approved bool
	Score    *float64
}

// Gate wraps a Scorer and decides whether a detected setup may trade.
// Scoring runs on a dedicated worker goroutine so a slow model never
// stalls tick ingestion; the caller still awaits the verdict, so per tick
// the check is logically synchronous.
type Gate struct {
	scorer        Scorer
	minConfidence float64
	timeout       time.Duration
	requests      chan scoreRequest
	done          chan struct{}
	logger        zerolog.Logger
}

type scoreRequest struct {
	ctx      context.Context
	features []float64
	reply    chan scoreResult
}

type scoreResult struct {
	score float64
	err   error
}

// GateConfig holds gate configuration.
type GateConfig struct {
	Scorer        Scorer // nil means no model: the gate passes everything through
	MinConfidence float64
	Timeout       time.Duration
	Logger        zerolog.Logger
}

// NewGate creates a gate and starts its scoring worker.
func NewGate(cfg GateConfig) *Gate {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	g := &Gate{
		scorer:        cfg.Scorer,
		minConfidence: cfg.MinConfidence,
		timeout:       timeout,
		requests:      make(chan scoreRequest),
		done:          make(chan struct{}),
		logger:        cfg.Logger,
	}

	if g.scorer != nil {
		go g.worker()
	}

	return g
}

// Close stops the scoring worker. In-flight checks fail open.
func (g *Gate) Close() {
	close(g.done)
}

// Approve decides whether a setup may trade. With no scorer configured the
// gate passes everything through with no confidence claim. With fewer than
// FeatureWindow candles the setup is rejected. Scoring errors and timeouts
// fail open: a broken model must never stall trading.
func (g *Gate) Approve(ctx context.Context, candles []models.Candle) Verdict {
	if g.scorer == nil {
		return Verdict{Approved: true}
	}

	if len(candles) < FeatureWindow {
		return Verdict{Approved: false}
	}

	features := Features(candles)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := scoreRequest{
		ctx:      ctx,
		features: features,
		reply:    make(chan scoreResult, 1),
	}

	select {
	case g.requests <- req:
	case <-ctx.Done():
		g.logger.Error().Err(ctx.Err()).Msg("Inference worker busy, failing open")
		return Verdict{Approved: true}
	case <-g.done:
		return Verdict{Approved: true}
	}

	select {
	case res := <-req.reply:
		if res.err != nil {
			g.logger.Error().Err(res.err).Msg("Inference failed, failing open")
			return Verdict{Approved: true}
		}
		score := res.score
		return Verdict{Approved: score > g.minConfidence, Score: &score}
	case <-ctx.Done():
		g.logger.Error().Err(ctx.Err()).Msg("Inference timed out, failing open")
		return Verdict{Approved: true}
	case <-g.done:
		return Verdict{Approved: true}
	}
}

func (g *Gate) worker() {
	for {
		select {
		case req := <-g.requests:
			score, err := g.scorer.Score(req.ctx, req.features)
			req.reply <- scoreResult{score: score, err: err}
		case <-g.done:
			return
		}
	}
}

// Features flattens the last FeatureWindow candles into the model input
// vector: [open, high, low, close, volume] per candle, oldest first.
func Features(candles []models.Candle) []float64 {
	if len(candles) > FeatureWindow {
		candles = candles[len(candles)-FeatureWindow:]
	}

	features := make([]float64, 0, FeatureWindow*5)
	for _, c := range candles {
		features = append(features, c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	return features
}
