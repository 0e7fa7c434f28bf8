// Package exporter streams the cached ledger into an export sink.
package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/luthenlog/luthen/pkg/api"
)

// FundWriter is implemented by sinks that also store fund balances.
type FundWriter interface {
	WriteFunds(ctx context.Context, funds []api.Fund) error
}

// Report summarizes an export.
type Report struct {
	Records      int
	Acknowledged int
	Funds        int
}

// Runner feeds records to a writer and collects its acknowledgments.
type Runner struct {
	logger *slog.Logger
}

// New creates a new export runner.
func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Run writes funds (when w supports them) and then every record to w. It
// blocks until w has consumed all records or fails.
func (r *Runner) Run(ctx context.Context, w api.Writer, records []api.Record, funds []api.Fund) (Report, error) {
	report := Report{Records: len(records)}

	if fw, ok := w.(FundWriter); ok {
		if err := fw.WriteFunds(ctx, funds); err != nil {
			return report, fmt.Errorf("exporting funds: %w", err)
		}
		report.Funds = len(funds)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan *api.Record, 100)
	ackChan := make(chan string, 100)

	go func() {
		defer close(in)
		for i := range records {
			select {
			case in <- &records[i]:
			case <-ctx.Done():
				return
			}
		}
	}()

	writerDone := make(chan error, 1)
	go func() {
		writerDone <- w.Write(ctx, in, ackChan)
	}()

	r.logger.Info("export started", "records", len(records))

	for {
		select {
		case <-ackChan:
			report.Acknowledged++
		case err := <-writerDone:
			// Acks sent before the writer returned are still buffered.
			for len(ackChan) > 0 {
				<-ackChan
				report.Acknowledged++
			}
			if err != nil {
				return report, fmt.Errorf("exporting records: %w", err)
			}
			r.logger.Info("export finished",
				"records", report.Records,
				"acknowledged", report.Acknowledged,
				"funds", report.Funds,
			)
			return report, nil
		}
	}
}
