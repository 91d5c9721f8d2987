// Package stream provides the market data feed and tick distribution.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"kraken-trader/internal/models"
)

// DefaultWSURL is the Kraken Futures public websocket endpoint.
const DefaultWSURL = "wss://futures.kraken.com/ws/v1"

const (
	// heartbeatTimeout bounds the silence on the socket before a
	// reconnect is forced.
	heartbeatTimeout = 60 * time.Second
	maxReconnectWait = 60 * time.Second
)

// TickListener receives ticks from the feed.
type TickListener func(models.Tick)

// KrakenFeed streams ticker updates for a set of Kraken Futures symbols.
// It reconnects with exponential backoff and fans each tick out to its
// listeners from a single goroutine, preserving arrival order.
type KrakenFeed struct {
	url     string
	symbols []string

	mu        sync.Mutex
	listeners []TickListener
	conn      *websocket.Conn
	running   bool
	cancel    context.CancelFunc

	logger zerolog.Logger
}

// FeedConfig holds feed configuration.
type FeedConfig struct {
	URL     string
	Symbols []string
	Logger  zerolog.Logger
}

// NewKrakenFeed creates a feed for the given symbols.
func NewKrakenFeed(cfg FeedConfig) *KrakenFeed {
	url := cfg.URL
	if url == "" {
		url = DefaultWSURL
	}
	return &KrakenFeed{
		url:     url,
		symbols: cfg.Symbols,
		logger:  cfg.Logger,
	}
}

// AddListener registers a callback for new ticks. Listeners must be
// registered before Start.
func (f *KrakenFeed) AddListener(listener TickListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, listener)
}

// Start launches the connection loop in the background.
func (f *KrakenFeed) Start(ctx context.Context) {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	ctx, f.cancel = context.WithCancel(ctx)
	f.mu.Unlock()

	f.logger.Info().Strs("symbols", f.symbols).Msg("Starting Kraken Futures feed")
	go f.connectLoop(ctx)
}

// Stop closes the connection and stops reconnecting.
func (f *KrakenFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return
	}
	f.running = false
	if f.cancel != nil {
		f.cancel()
	}
	if f.conn != nil {
		f.conn.Close()
	}
	f.logger.Info().Msg("Kraken Futures feed stopped")
}

func (f *KrakenFeed) connectLoop(ctx context.Context) {
	delay := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := f.session(ctx); err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			f.logger.Warn().
				Err(err).
				Dur("retry_in", delay).
				Msg("Feed connection lost, reconnecting")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			delay *= 2
			if delay > maxReconnectWait {
				delay = maxReconnectWait
			}
			continue
		}
		// Clean session end means we are shutting down.
		return
	}
}

// session dials, subscribes and reads until the connection breaks or the
// context is cancelled.
func (f *KrakenFeed) session(ctx context.Context) error {
	f.logger.Info().Str("url", f.url).Msg("Connecting")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	sub := map[string]interface{}{
		"event":       "subscribe",
		"feed":        "ticker",
		"product_ids": f.symbols,
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	f.logger.Info().Strs("symbols", f.symbols).Msg("Subscribed to tickers")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(heartbeatTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handleMessage(raw)
	}
}

// wsMessage covers both control events and ticker data frames of the
// Futures v1 feed.
type wsMessage struct {
	Event     string   `json:"event"`
	Feed      string   `json:"feed"`
	Version   int      `json:"version"`
	Message   string   `json:"message"`
	ProductID string   `json:"product_id"`
	Last      *float64 `json:"last"`
}

func (f *KrakenFeed) handleMessage(raw []byte) {
	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		f.logger.Error().Err(err).Msg("Failed to parse feed message")
		return
	}

	switch msg.Event {
	case "info":
		f.logger.Info().Int("version", msg.Version).Msg("Feed info")
		return
	case "subscribed":
		f.logger.Info().Str("feed", msg.Feed).Msg("Subscription confirmed")
		return
	case "error":
		f.logger.Error().Str("message", msg.Message).Msg("Feed error")
		return
	}

	if msg.Feed != "ticker" || msg.ProductID == "" || msg.Last == nil {
		return
	}

	tick := models.Tick{
		Symbol:    msg.ProductID,
		Price:     *msg.Last,
		Timestamp: time.Now().UTC(),
	}

	f.mu.Lock()
	listeners := f.listeners
	f.mu.Unlock()

	for _, listener := range listeners {
		listener(tick)
	}
}
