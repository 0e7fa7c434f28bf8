// Package json implements a Writer that exports records to a JSON file.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/writer/buffered"
)

// Writer keeps a JSON array of records on disk. Records are merged by id,
// so exporting the same ledger twice does not duplicate it.
type Writer struct {
	filePath string
	records  []*api.Record
	index    map[string]int
	mu       sync.Mutex
	buffered *buffered.Writer
	logger   *slog.Logger
}

// Config holds configuration for the JSON writer.
type Config struct {
	// FilePath is the path to the JSON output file.
	FilePath      string
	BatchSize     int
	FlushInterval time.Duration
}

// New creates a JSON writer, loading the records already in the file.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FilePath == "" {
		return nil, errors.New("json writer: file path is required")
	}

	w := &Writer{
		filePath: cfg.FilePath,
		index:    make(map[string]int),
		logger:   logger,
	}
	if err := w.loadExisting(); err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfg.FilePath, err)
	}

	w.buffered = buffered.New(w.flushBatch, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger.With("component", "json_buffer"))

	logger.Info("json writer initialized", "file", cfg.FilePath, "existing_count", len(w.records))
	return w, nil
}

func (w *Writer) loadExisting() error {
	data, err := os.ReadFile(w.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &w.records); err != nil {
		return err
	}
	for i, r := range w.records {
		if r != nil && r.ID != "" {
			w.index[r.ID] = i
		}
	}
	return nil
}

// Write consumes records from in and writes them to the file.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Record, ackChan chan<- string) error {
	return w.buffered.Write(ctx, in, ackChan)
}

func (w *Writer) flushBatch(_ context.Context, records []*api.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, r := range records {
		if i, ok := w.index[r.ID]; ok && r.ID != "" {
			w.records[i] = r
			continue
		}
		if r.ID != "" {
			w.index[r.ID] = len(w.records)
		}
		w.records = append(w.records, r)
	}

	// JSON has no append; rewrite the whole array.
	data, err := json.MarshalIndent(w.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}
	if err := os.WriteFile(w.filePath, data, 0o600); err != nil {
		return fmt.Errorf("writing json file: %w", err)
	}

	w.logger.Debug("wrote records to json",
		"batch_count", len(records),
		"total_count", len(w.records),
	)
	return nil
}

// RecordCount returns the number of records in the file.
func (w *Writer) RecordCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.records)
}
