package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/luthenlog/luthen/internal/exporter"
	"github.com/luthenlog/luthen/pkg/api"
)

// sinkRegistry lists the sinks export can write to.
var sinkRegistry = exporter.DefaultRegistry

type exportCmd struct {
	sink string
	path string
	list bool
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export funds and records to a file, a database or a spreadsheet" }
func (*exportCmd) Usage() string {
	return `luthen export -to <sink> [-out <path>]
luthen export -list

  Loads every fund and record of the session and writes them to the sink.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.sink, "to", "json", "sink name, see -list")
	f.StringVar(&c.path, "out", "", "output file for the json and csv sinks")
	f.BoolVar(&c.list, "list", false, "list the available sinks")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)
	registry := sinkRegistry()

	if c.list {
		fmt.Fprintln(opts.out, "Available sinks:")
		for _, s := range registry.List() {
			fmt.Fprintf(opts.out, "  %-10s %s\n", s.Name(), s.Description())
		}
		return subcommands.ExitSuccess
	}

	sink, err := registry.Get(c.sink)
	if err != nil {
		fmt.Fprintf(opts.errOut, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, sess, err := connect(opts)
	if err != nil {
		return opts.errorf("%v", err)
	}

	funds := a.store.Funds.GetFunds(ctx, sess)
	if !funds.OK() {
		return opts.errorf("loading funds: %s", funds.ErrorMessage())
	}
	records := a.store.Records.GetRecords(ctx, sess, api.RecordFilter{})
	if !records.OK() {
		return opts.errorf("loading records: %s", records.ErrorMessage())
	}

	w, err := sink.Open(ctx, exporter.Options{
		Path:   c.path,
		Config: a.cfg,
		Out:    opts.out,
		Logger: a.logger.With("sink", sink.Name()),
	})
	if err != nil {
		return opts.errorf("opening %s sink: %v", sink.Name(), err)
	}

	report, err := exporter.New(a.logger).Run(ctx, w, a.store.Records.Records(), a.store.Funds.Funds())
	if cerr := closeWriter(w); cerr != nil {
		if err != nil {
			a.logger.Warn("closing sink after failed export", "sink", sink.Name(), "error", cerr)
		} else {
			err = fmt.Errorf("closing %s sink: %w", sink.Name(), cerr)
		}
	}
	if err != nil {
		return opts.errorf("%v", err)
	}

	fmt.Fprintf(opts.out, "✓ Exported %d of %d records", report.Acknowledged, report.Records)
	if report.Funds > 0 {
		fmt.Fprintf(opts.out, " and %d funds", report.Funds)
	}
	fmt.Fprintf(opts.out, " to %s\n", sink.Name())
	return subcommands.ExitSuccess
}

// closeWriter releases writers that hold a file or a connection pool. A
// failed close means buffered output may be lost.
func closeWriter(w api.Writer) error {
	switch c := w.(type) {
	case interface{ Close() error }:
		return c.Close()
	case interface{ Close() }:
		c.Close()
	}
	return nil
}
