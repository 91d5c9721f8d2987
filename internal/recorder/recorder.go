// Package recorder archives raw ticks to daily CSV files for later
// backtesting.
package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"kraken-trader/internal/models"
)

const (
	queueDepth   = 4096
	maxBatchSize = 100
)

// Recorder drains ticks from a queue onto disk, one CSV file per UTC
// day. Files are opened in append mode so a restart resumes the day's
// file.
type Recorder struct {
	dataDir string
	queue   chan models.Tick

	mu          sync.Mutex
	running     bool
	done        chan struct{}
	currentDate string
	file        *os.File
	writer      *csv.Writer

	logger zerolog.Logger
}

// New creates a recorder writing under dataDir.
func New(dataDir string, logger zerolog.Logger) (*Recorder, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Recorder{
		dataDir: dataDir,
		queue:   make(chan models.Tick, queueDepth),
		done:    make(chan struct{}),
		logger:  logger,
	}, nil
}

// Start launches the writer goroutine.
func (r *Recorder) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	go r.drain()
	r.logger.Info().Str("dir", r.dataDir).Msg("Data recorder started")
}

// Stop flushes pending ticks and closes the current file.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	// Close under the mutex so a concurrent Record can never send on
	// the closed queue.
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	r.logger.Info().Msg("Data recorder stopped")
}

// Record enqueues a tick without blocking. Ticks arriving while the
// queue is full are dropped; archival is best effort.
func (r *Recorder) Record(tick models.Tick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	select {
	case r.queue <- tick:
	default:
	}
}

func (r *Recorder) drain() {
	defer close(r.done)
	defer r.closeFile()

	batch := make([]models.Tick, 0, maxBatchSize)
	for tick := range r.queue {
		batch = append(batch, tick)
		// Drain whatever else is queued, bounded per batch.
		for len(batch) < maxBatchSize {
			select {
			case next, ok := <-r.queue:
				if !ok {
					r.writeBatch(batch)
					return
				}
				batch = append(batch, next)
			default:
				goto flush
			}
		}
	flush:
		r.writeBatch(batch)
		batch = batch[:0]
	}
}

func (r *Recorder) writeBatch(batch []models.Tick) {
	if len(batch) == 0 {
		return
	}

	for _, tick := range batch {
		date := tick.Timestamp.UTC().Format("2006-01-02")
		if date != r.currentDate || r.writer == nil {
			if err := r.rotate(date); err != nil {
				r.logger.Error().Err(err).Msg("Recorder rotation failed")
				return
			}
		}
		record := []string{
			tick.Timestamp.UTC().Format("2006-01-02T15:04:05.000000"),
			tick.Symbol,
			strconv.FormatFloat(tick.Price, 'f', -1, 64),
			strconv.FormatFloat(tick.Volume, 'f', -1, 64),
		}
		if err := r.writer.Write(record); err != nil {
			r.logger.Error().Err(err).Msg("Recorder write failed")
			return
		}
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		r.logger.Error().Err(err).Msg("Recorder flush failed")
	}
}

func (r *Recorder) rotate(date string) error {
	r.closeFile()

	path := filepath.Join(r.dataDir, fmt.Sprintf("ticker_%s.csv", date))
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	r.currentDate = date
	r.file = file
	r.writer = csv.NewWriter(file)

	if isNew {
		if err := r.writer.Write([]string{"time", "symbol", "price", "volume"}); err != nil {
			return err
		}
		r.writer.Flush()
	}

	r.logger.Info().Str("file", filepath.Base(path)).Msg("Recorder rotated")
	return nil
}

func (r *Recorder) closeFile() {
	if r.writer != nil {
		r.writer.Flush()
		r.writer = nil
	}
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
}
