// Package risk provides pre-trade order validation and the safe broker
// proxy that enforces it.
package risk

import (
	"math"
	"sync"

	"github.com/rs/zerolog"

	"kraken-trader/internal/broker"
	"kraken-trader/internal/models"
)

// Manager validates orders against confidence and exposure limits.
// Rejections are policy outcomes, not errors: they are counted and logged,
// and the order simply does not happen.
type Manager struct {
	minConfidence   float64
	maxPositionSize float64

	rejections int
	logger     zerolog.Logger
	mu         sync.Mutex
}

// ManagerConfig holds risk manager configuration.
type ManagerConfig struct {
	MinConfidence   float64 // orders claiming a lower AI confidence are rejected
	MaxPositionSize float64 // maximum absolute position per symbol
	Logger          zerolog.Logger
}

// NewManager creates a new risk manager.
func NewManager(cfg ManagerConfig) *Manager {
	maxSize := cfg.MaxPositionSize
	if maxSize == 0 {
		maxSize = 5.0
	}
	return &Manager{
		minConfidence:   cfg.MinConfidence,
		maxPositionSize: maxSize,
		logger:          cfg.Logger,
	}
}

// ValidateConfidence checks the order's attached AI confidence, if any.
// Orders without a confidence claim pass.
func (m *Manager) ValidateConfidence(req broker.OrderRequest) bool {
	if req.Params.Confidence == nil {
		return true
	}

	confidence := *req.Params.Confidence
	if confidence < m.minConfidence {
		m.reject()
		m.logger.Warn().
			Str("symbol", req.Symbol).
			Float64("confidence", confidence).
			Float64("min_confidence", m.minConfidence).
			Msg("Risk reject: low confidence")
		return false
	}
	return true
}

// ValidateExposure checks that the position resulting from the order would
// stay within the absolute exposure limit.
func (m *Manager) ValidateExposure(currentPos float64, req broker.OrderRequest) bool {
	resulting := currentPos
	switch req.Side {
	case models.SideBuy:
		resulting += req.Size
	case models.SideSell:
		resulting -= req.Size
	}

	if math.Abs(resulting) > m.maxPositionSize {
		m.reject()
		m.logger.Warn().
			Str("symbol", req.Symbol).
			Float64("resulting_position", resulting).
			Float64("max_position_size", m.maxPositionSize).
			Msg("Risk reject: max position limit")
		return false
	}
	return true
}

// Rejections returns the cumulative number of rejected orders.
func (m *Manager) Rejections() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejections
}

func (m *Manager) reject() {
	m.mu.Lock()
	m.rejections++
	m.mu.Unlock()
}
