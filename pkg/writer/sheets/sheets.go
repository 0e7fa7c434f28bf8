// Package sheets implements a Writer that exports records to Google Sheets.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/writer/buffered"
)

// Scope is the OAuth scope the writer needs.
const Scope = sheets.SpreadsheetsScope

// DefaultSheetName is used when Config.SheetName is empty.
const DefaultSheetName = "Records"

var header = []any{"ID", "Date", "Type", "Fund", "Correlated fund", "Amount", "Tag", "Note"}

// Writer appends records to a spreadsheet with buffered batching.
type Writer struct {
	client        *sheets.Service
	spreadsheetID string
	sheetName     string
	retryDelay    time.Duration
	logger        *slog.Logger
	buffered      *buffered.Writer
}

// Config holds configuration for the Sheets writer.
type Config struct {
	// SheetTitle is the title for a new spreadsheet (if SheetID is empty).
	SheetTitle string
	// SheetID is the ID of an existing spreadsheet to use.
	SheetID string
	// SheetName is the tab within the spreadsheet.
	SheetName     string
	BatchSize     int
	FlushInterval time.Duration
	// RetryDelay is the wait after a 429 answer. Zero means one minute.
	RetryDelay time.Duration
	// Endpoint overrides the API endpoint.
	Endpoint string
}

// New creates a Sheets writer, opening SheetID or creating a spreadsheet.
func New(ctx context.Context, httpClient *http.Client, cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SheetName == "" {
		cfg.SheetName = DefaultSheetName
	}
	if cfg.SheetTitle == "" {
		cfg.SheetTitle = "luthen ledger"
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Minute
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	client, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	w := &Writer{
		client:     client,
		sheetName:  cfg.SheetName,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}

	id, err := w.initSpreadsheet(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing spreadsheet: %w", err)
	}
	w.spreadsheetID = id

	w.buffered = buffered.New(w.flushBatch, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger.With("component", "sheets_buffer"))

	logger.Info("sheets writer initialized", "spreadsheet_id", id)
	return w, nil
}

func (w *Writer) initSpreadsheet(ctx context.Context, cfg Config) (string, error) {
	if cfg.SheetID != "" {
		spreadsheet, err := w.client.Spreadsheets.Get(cfg.SheetID).Context(ctx).Do()
		if err == nil {
			w.logger.Info("using existing spreadsheet", "title", spreadsheet.Properties.Title, "id", cfg.SheetID)
			return spreadsheet.SpreadsheetId, nil
		}
		w.logger.Warn("failed to get spreadsheet, will create new one", "id", cfg.SheetID, "error", err)
	}

	spreadsheet, err := w.client.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: cfg.SheetTitle},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: cfg.SheetName}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating spreadsheet: %w", err)
	}
	w.logger.Info("created new spreadsheet", "title", cfg.SheetTitle, "id", spreadsheet.SpreadsheetId)

	headerRange := fmt.Sprintf("%s!A1:H1", cfg.SheetName)
	_, err = w.client.Spreadsheets.Values.Update(spreadsheet.SpreadsheetId, headerRange, &sheets.ValueRange{
		Values: [][]any{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("writing headers: %w", err)
	}
	return spreadsheet.SpreadsheetId, nil
}

// Write consumes records from in and appends them to the sheet.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Record, ackChan chan<- string) error {
	return w.buffered.Write(ctx, in, ackChan)
}

func row(r *api.Record) []any {
	opt := func(s *string) any {
		if s == nil {
			return ""
		}
		return *s
	}
	return []any{r.ID, r.Date, r.Type.String(), r.FundID, r.CorrelatedFundID, r.Amount.String(), opt(r.Tag), opt(r.Note)}
}

// flushBatch appends a batch in a single API call, retrying when rate
// limited.
func (w *Writer) flushBatch(ctx context.Context, records []*api.Record) error {
	values := make([][]any, 0, len(records))
	for _, r := range records {
		values = append(values, row(r))
	}
	writeRange := fmt.Sprintf("%s!A2:H2", w.sheetName)
	req := &sheets.ValueRange{Values: values}

	err := retry.Do(
		func() error {
			_, err := w.client.Spreadsheets.Values.Append(w.spreadsheetID, writeRange, req).
				ValueInputOption("RAW").
				InsertDataOption("INSERT_ROWS").
				Context(ctx).
				Do()
			return err
		},
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				w.logger.Warn("rate limited, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(w.retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("appending batch to sheet: %w", err)
	}

	w.logger.Info("wrote record batch", "count", len(records))
	return nil
}

// SpreadsheetID returns the ID of the spreadsheet being written to.
func (w *Writer) SpreadsheetID() string {
	return w.spreadsheetID
}
