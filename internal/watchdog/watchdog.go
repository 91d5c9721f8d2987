// Package watchdog monitors event loop health. It measures timer drift
// to detect a starved scheduler and logs a periodic heartbeat.
package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// lagThreshold is how much a 1s sleep may overrun before it is
	// reported.
	lagThreshold = 500 * time.Millisecond

	defaultCheckInterval     = time.Second
	defaultHeartbeatInterval = 60 * time.Second
)

// Watchdog runs the lag monitor and heartbeat loops.
type Watchdog struct {
	checkInterval     time.Duration
	heartbeatInterval time.Duration

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	startTime time.Time

	logger zerolog.Logger
}

// New creates a watchdog. Zero intervals use the defaults.
func New(checkInterval, heartbeatInterval time.Duration, logger zerolog.Logger) *Watchdog {
	if checkInterval <= 0 {
		checkInterval = defaultCheckInterval
	}
	if heartbeatInterval <= 0 {
		heartbeatInterval = defaultHeartbeatInterval
	}
	return &Watchdog{
		checkInterval:     checkInterval,
		heartbeatInterval: heartbeatInterval,
		logger:            logger,
	}
}

// Start launches the monitor and heartbeat goroutines.
func (w *Watchdog) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.startTime = time.Now()
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	go w.monitor(ctx)
	go w.heartbeat(ctx)
	w.logger.Info().Msg("Watchdog started")
}

// Stop halts both loops.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	w.cancel()
}

// Uptime reports time since Start.
func (w *Watchdog) Uptime() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.startTime.IsZero() {
		return 0
	}
	return time.Since(w.startTime)
}

func (w *Watchdog) monitor(ctx context.Context) {
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.checkInterval):
		}

		lag := time.Since(start) - w.checkInterval
		if lag > lagThreshold {
			w.logger.Warn().
				Dur("lag", lag).
				Msg("System lag detected")
		}
	}
}

func (w *Watchdog) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.logger.Info().
				Dur("uptime", w.Uptime().Round(time.Second)).
				Msg("Heartbeat: status OK")
		}
	}
}
