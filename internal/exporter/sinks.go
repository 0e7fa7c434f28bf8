package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/client"
	"github.com/luthenlog/luthen/pkg/config"
	csvwriter "github.com/luthenlog/luthen/pkg/writer/csv"
	jsonwriter "github.com/luthenlog/luthen/pkg/writer/json"
	"github.com/luthenlog/luthen/pkg/writer/postgres"
	"github.com/luthenlog/luthen/pkg/writer/sheets"
)

// Options carry what a sink may need to open its writer.
type Options struct {
	// Path is the output file of file sinks.
	Path   string
	Config *config.Config
	// Out receives interactive instructions, such as the Google sign-in URL.
	Out    io.Writer
	Logger *slog.Logger
}

// Sink opens writers for one export destination.
type Sink interface {
	// Name returns the sink name used on the command line.
	Name() string
	// Description returns a human-readable description.
	Description() string
	// Open creates a writer. The caller closes it with Close when the
	// writer has a Close method.
	Open(ctx context.Context, opts Options) (api.Writer, error)
}

// Registry maps sink names to sinks.
type Registry struct {
	sinks map[string]Sink
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// DefaultRegistry returns a registry with every built-in sink.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range []Sink{jsonSink{}, csvSink{}, postgresSink{}, sheetsSink{}} {
		// Built-in names are distinct.
		_ = r.Register(s)
	}
	return r
}

// Register adds s. Names must be unique.
func (r *Registry) Register(s Sink) error {
	name := s.Name()
	if _, exists := r.sinks[name]; exists {
		return fmt.Errorf("sink %q already registered", name)
	}
	r.sinks[name] = s
	return nil
}

// Get returns the sink called name.
func (r *Registry) Get(name string) (Sink, error) {
	s, ok := r.sinks[name]
	if !ok {
		return nil, fmt.Errorf("sink %q not found", name)
	}
	return s, nil
}

// List returns the registered sinks sorted by name.
func (r *Registry) List() []Sink {
	out := make([]Sink, 0, len(r.sinks))
	for _, s := range r.sinks {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

type jsonSink struct{}

func (jsonSink) Name() string        { return "json" }
func (jsonSink) Description() string { return "JSON array of records, merged by id" }

func (jsonSink) Open(_ context.Context, opts Options) (api.Writer, error) {
	if opts.Path == "" {
		return nil, errors.New("json export needs an output path")
	}
	return jsonwriter.New(jsonwriter.Config{FilePath: opts.Path}, opts.Logger)
}

type csvSink struct{}

func (csvSink) Name() string        { return "csv" }
func (csvSink) Description() string { return "CSV file, one row per record" }

func (csvSink) Open(_ context.Context, opts Options) (api.Writer, error) {
	if opts.Path == "" {
		return nil, errors.New("csv export needs an output path")
	}
	return csvwriter.New(csvwriter.Config{FilePath: opts.Path}, opts.Logger)
}

type postgresSink struct{}

func (postgresSink) Name() string        { return "postgres" }
func (postgresSink) Description() string { return "PostgreSQL tables funds and records, upserted by id" }

func (postgresSink) Open(ctx context.Context, opts Options) (api.Writer, error) {
	if opts.Config == nil || opts.Config.Postgres.Host == "" {
		return nil, errors.New("postgres export needs POSTGRES_HOST")
	}
	pg := opts.Config.Postgres
	return postgres.New(ctx, postgres.Config{
		Host:     pg.Host,
		Port:     pg.Port,
		Database: pg.Database,
		User:     pg.User,
		Password: pg.Password,
		SSLMode:  pg.SSLMode,
	}, opts.Logger)
}

type sheetsSink struct{}

func (sheetsSink) Name() string        { return "sheets" }
func (sheetsSink) Description() string { return "Google Sheets spreadsheet, rows appended" }

func (sheetsSink) Open(ctx context.Context, opts Options) (api.Writer, error) {
	if opts.Config == nil || opts.Config.Sheets.SecretFile == "" {
		return nil, errors.New("sheets export needs GSHEETS_SECRET_FILE")
	}
	sc := opts.Config.Sheets
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	httpClient, err := client.GoogleClient(ctx, sc.SecretFile, sc.TokenFile, out, sheets.Scope)
	if err != nil {
		return nil, fmt.Errorf("authorizing google client: %w", err)
	}
	return sheets.New(ctx, httpClient, sheets.Config{
		SheetTitle: sc.Title,
		SheetID:    sc.ID,
		SheetName:  sc.Name,
	}, opts.Logger)
}
