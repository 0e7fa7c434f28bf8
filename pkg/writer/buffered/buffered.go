// Package buffered batches records for sinks that write in bulk.
package buffered

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/luthenlog/luthen/pkg/api"
)

// DefaultBatchSize is the default number of records to buffer before flushing.
const DefaultBatchSize = 50

// DefaultFlushInterval is the default interval between automatic flushes.
const DefaultFlushInterval = 5 * time.Second

// Flusher persists one batch.
type Flusher func(ctx context.Context, records []*api.Record) error

// Config holds configuration for buffered writing.
type Config struct {
	// BatchSize defaults to DefaultBatchSize.
	BatchSize int
	// FlushInterval defaults to DefaultFlushInterval.
	FlushInterval time.Duration
}

// Writer buffers records and flushes them in batches. The id of every
// record in a successful batch is acknowledged.
type Writer struct {
	buffer  []*api.Record
	mu      sync.Mutex
	flusher Flusher
	config  Config
	logger  *slog.Logger
}

// New creates a new buffered writer with the given flusher function.
func New(flusher Flusher, cfg Config, logger *slog.Logger) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{
		buffer:  make([]*api.Record, 0, cfg.BatchSize),
		flusher: flusher,
		config:  cfg,
		logger:  logger,
	}
}

// Write consumes records until in is closed or ctx is done. Whatever is
// buffered at that point is flushed. The first flush error stops the writer.
// ackChan may be nil.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Record, ackChan chan<- string) error {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	w.logger.Debug("buffered writer started",
		"batch_size", w.config.BatchSize,
		"flush_interval", w.config.FlushInterval,
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("buffered writer stopping, flushing remaining buffer")
			// The caller's context is gone; the final flush gets its own.
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			err := w.flush(flushCtx, nil)
			cancel()
			if err != nil {
				return fmt.Errorf("flushing on shutdown: %w", err)
			}
			return ctx.Err()

		case <-ticker.C:
			if err := w.flush(ctx, ackChan); err != nil {
				return fmt.Errorf("flushing on interval: %w", err)
			}

		case rec, ok := <-in:
			if !ok {
				if err := w.flush(ctx, ackChan); err != nil {
					return fmt.Errorf("flushing on close: %w", err)
				}
				return nil
			}
			if rec == nil {
				continue
			}

			w.mu.Lock()
			w.buffer = append(w.buffer, rec)
			full := len(w.buffer) >= w.config.BatchSize
			w.mu.Unlock()

			if full {
				if err := w.flush(ctx, ackChan); err != nil {
					return fmt.Errorf("flushing full batch: %w", err)
				}
			}
		}
	}
}

// flush writes the buffered records and acknowledges them on ackChan.
func (w *Writer) flush(ctx context.Context, ackChan chan<- string) error {
	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return nil
	}
	toFlush := make([]*api.Record, len(w.buffer))
	copy(toFlush, w.buffer)
	w.buffer = w.buffer[:0]
	w.mu.Unlock()

	if err := w.flusher(ctx, toFlush); err != nil {
		return err
	}
	w.logger.Debug("flushed records", "count", len(toFlush))

	if ackChan == nil {
		return nil
	}
	for _, rec := range toFlush {
		select {
		case ackChan <- rec.ID:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// BufferLen returns the current number of buffered records.
func (w *Writer) BufferLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}
