// Package csv implements a Writer that exports records to a CSV file.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/writer/buffered"
)

// Header is the first row of every export.
var Header = []string{"id", "date", "type", "fund_id", "correlated_fund_id", "amount", "tag", "note"}

// Writer writes records to a CSV file with buffered batching. Each export
// replaces the file.
type Writer struct {
	filePath string
	file     *os.File
	writer   *csv.Writer
	mu       sync.Mutex
	buffered *buffered.Writer
	logger   *slog.Logger
}

// Config holds configuration for the CSV writer.
type Config struct {
	// FilePath is the path to the CSV output file.
	FilePath      string
	BatchSize     int
	FlushInterval time.Duration
}

// New creates the file, writes the header and returns the writer.
func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FilePath == "" {
		return nil, errors.New("csv writer: file path is required")
	}

	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening csv file: %w", err)
	}

	w := &Writer{
		filePath: cfg.FilePath,
		file:     file,
		writer:   csv.NewWriter(file),
		logger:   logger,
	}

	if err := w.writer.Write(Header); err != nil {
		return nil, errors.Join(fmt.Errorf("writing header: %w", err), file.Close())
	}

	w.buffered = buffered.New(w.flushBatch, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger.With("component", "csv_buffer"))

	logger.Info("csv writer initialized", "file", cfg.FilePath)
	return w, nil
}

// Write consumes records from in and closes the file when done.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Record, ackChan chan<- string) error {
	err := w.buffered.Write(ctx, in, ackChan)
	return errors.Join(err, w.Close())
}

// Row renders r as a CSV row matching Header.
func Row(r *api.Record) []string {
	opt := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return []string{
		r.ID,
		r.Date,
		strconv.Itoa(int(r.Type)),
		r.FundID,
		r.CorrelatedFundID,
		r.Amount.String(),
		opt(r.Tag),
		opt(r.Note),
	}
}

func (w *Writer) flushBatch(_ context.Context, records []*api.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, r := range records {
		if err := w.writer.Write(Row(r)); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	w.logger.Debug("wrote records to csv", "count", len(records))
	return nil
}

// Close flushes and closes the CSV file. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	w.writer.Flush()
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return fmt.Errorf("closing csv file: %w", err)
	}

	w.logger.Info("csv writer closed", "file", w.filePath)
	return nil
}
