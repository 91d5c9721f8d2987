package stream

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"kraken-trader/internal/models"
)

// DefaultHubBuffer is the depth of the dispatch queue. A slow consumer
// drops ticks rather than stalling the feed reader.
const DefaultHubBuffer = 1024

// Consumer receives ticks from the hub dispatcher.
type Consumer func(ctx context.Context, tick models.Tick)

// Hub decouples the websocket reader from tick consumers. Ticks enter a
// buffered queue and a single dispatcher goroutine delivers them to all
// consumers in order, so downstream state machines never see concurrent
// ticks.
type Hub struct {
	queue chan models.Tick

	mu        sync.Mutex
	consumers []Consumer
	started   bool
	done      chan struct{}

	dropped uint64
	logger  zerolog.Logger
}

// NewHub creates a hub with the given queue depth (0 uses the default).
func NewHub(buffer int, logger zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultHubBuffer
	}
	return &Hub{
		queue:  make(chan models.Tick, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// AddConsumer registers a consumer. Consumers must be registered before
// Start.
func (h *Hub) AddConsumer(c Consumer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consumers = append(h.consumers, c)
}

// Offer enqueues a tick without blocking. If the queue is full the tick
// is dropped and counted.
func (h *Hub) Offer(tick models.Tick) {
	select {
	case h.queue <- tick:
	default:
		h.mu.Lock()
		h.dropped++
		dropped := h.dropped
		h.mu.Unlock()
		h.logger.Warn().
			Str("symbol", tick.Symbol).
			Uint64("dropped", dropped).
			Msg("Tick queue full, dropping tick")
	}
}

// Dropped reports how many ticks were discarded due to backpressure.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Start launches the dispatcher goroutine.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go h.dispatch(ctx)
}

// Wait blocks until the dispatcher has exited.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) dispatch(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-h.queue:
			h.mu.Lock()
			consumers := h.consumers
			h.mu.Unlock()
			for _, c := range consumers {
				c(ctx, tick)
			}
		}
	}
}
