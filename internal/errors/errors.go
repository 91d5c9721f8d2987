// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoMarketPrice     = errors.New("no market price for symbol")
	ErrInsufficientData  = errors.New("insufficient data for calculation")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrOrderRejected     = errors.New("order rejected")
	ErrTradingDisabled   = errors.New("trading is disabled")
	ErrNotConnected      = errors.New("feed not connected")
	ErrScorerUnavailable = errors.New("scorer unavailable")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrDataNotFound      = errors.New("data not found")
	ErrDatabaseError     = errors.New("database error")
	ErrMissingCredential = errors.New("missing api credential")
)

// OrderError represents an error related to order operations.
type OrderError struct {
	Symbol string
	Side   string
	Action string
	Reason string
	Err    error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order error %s %s %s: %s: %v", e.Action, e.Side, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("order error %s %s %s: %s", e.Action, e.Side, e.Symbol, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(symbol, side, action, reason string, err error) *OrderError {
	return &OrderError{
		Symbol: symbol,
		Side:   side,
		Action: action,
		Reason: reason,
		Err:    err,
	}
}

// ExchangeError represents an error returned by the exchange API.
type ExchangeError struct {
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exchange error [%d] %s: %s: %v", e.Status, e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("exchange error [%d] %s: %s", e.Status, e.Endpoint, e.Message)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// NewExchangeError creates a new ExchangeError.
func NewExchangeError(endpoint string, status int, message string, err error) *ExchangeError {
	return &ExchangeError{
		Endpoint: endpoint,
		Status:   status,
		Message:  message,
		Err:      err,
	}
}
