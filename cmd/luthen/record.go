package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/luthenlog/luthen/pkg/api"
)

type recordCmd struct{}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "list, create, update and delete records" }
func (*recordCmd) Usage() string {
	return `luthen record <list|create|update|delete> [flags] [args]
`
}
func (*recordCmd) SetFlags(*flag.FlagSet) {}

func (*recordCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	commander := subcommands.NewCommander(f, "record")
	opts := optionsFrom(args)
	commander.Output, commander.Error = opts.out, opts.errOut
	commander.Register(&recordListCmd{}, "")
	commander.Register(&recordCreateCmd{}, "")
	commander.Register(&recordUpdateCmd{}, "")
	commander.Register(&recordDeleteCmd{}, "")
	return commander.Execute(ctx, args...)
}

// parseRecordType accepts a type name or its numeric code.
func parseRecordType(s string) (api.RecordType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "neutral", "0":
		return api.Neutral, nil
	case "credit", "1":
		return api.Credit, nil
	case "debit", "2":
		return api.Debit, nil
	}
	return 0, fmt.Errorf("unknown record type %q (want neutral, credit or debit)", s)
}

type recordListCmd struct {
	view       string
	fund       string
	correlated string
	typ        string
	tag        string
	note       string
	from       string
	until      string
}

func (*recordListCmd) Name() string     { return "list" }
func (*recordListCmd) Synopsis() string { return "list records matching the filters" }
func (*recordListCmd) Usage() string {
	return `luthen record list [-view all|credits|debits|transfers] [-fund <id>] [-type <type>] [-from <date>] [-to-date <date>]
`
}

func (c *recordListCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.view, "view", "all", "records to show: all, credits, debits or transfers")
	f.StringVar(&c.fund, "fund", "", "only records of this fund id")
	f.StringVar(&c.correlated, "correlated", "", "only transfers involving this second fund id")
	f.StringVar(&c.typ, "type", "", "only records of this type")
	f.StringVar(&c.tag, "tag", "", "only records with this tag")
	f.StringVar(&c.note, "note", "", "only records with this note")
	f.StringVar(&c.from, "from", "", "only records on or after this date (YYYY-MM-DD)")
	f.StringVar(&c.until, "to-date", "", "only records on or before this date (YYYY-MM-DD)")
}

func (c *recordListCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)

	filter := api.RecordFilter{
		FundID:           c.fund,
		CorrelatedFundID: c.correlated,
		Tag:              c.tag,
		Note:             c.note,
		FromDate:         c.from,
		ToDate:           c.until,
	}
	if c.typ != "" {
		t, err := parseRecordType(c.typ)
		if err != nil {
			fmt.Fprintf(opts.errOut, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		filter.Type = &t
	}

	a, sess, err := connect(opts)
	if err != nil {
		return opts.errorf("%v", err)
	}

	// Fund names are only used for display; a failure here is not fatal.
	if funds := a.store.Funds.GetFunds(ctx, sess); !funds.OK() {
		a.logger.Warn("could not load fund names", "error", funds.ErrorMessage())
	}

	res := a.store.Records.GetRecords(ctx, sess, filter)
	return printResult(opts, res, func([]api.Record) string {
		var records []api.Record
		switch c.view {
		case "credits":
			records = a.store.Records.Credits()
		case "debits":
			records = a.store.Records.Debits()
		case "transfers":
			records = a.store.Records.Transfers()
		default:
			records = a.store.Records.Records()
		}
		return recordsMarkdown(records, a.store.Funds.Funds(), a.cfg.Locale, a.cfg.Currency)
	})
}

type recordCreateCmd struct {
	amount string
	date   string
	fund   string
	to     string
	typ    string
	tag    string
	note   string
}

func (*recordCreateCmd) Name() string     { return "create" }
func (*recordCreateCmd) Synopsis() string { return "create a record, or a transfer with -to" }
func (*recordCreateCmd) Usage() string {
	return `luthen record create -fund <id> -amount <n> [-type credit|debit|neutral] [-to <id>] [-date YYYY-MM-DD] [-tag t] [-note n]
`
}

func (c *recordCreateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "amount", "", "amount, e.g. 12.50")
	f.StringVar(&c.date, "date", time.Now().Format(time.DateOnly), "record date")
	f.StringVar(&c.fund, "fund", "", "fund id")
	f.StringVar(&c.to, "to", "", "second fund id of a transfer")
	f.StringVar(&c.typ, "type", "debit", "record type")
	f.StringVar(&c.tag, "tag", "", "optional tag")
	f.StringVar(&c.note, "note", "", "optional note")
}

// input builds the create payload from the flags.
func (c *recordCreateCmd) input() (api.RecordInput, error) {
	amount, err := api.ParseAmount(c.amount)
	if err != nil {
		return api.RecordInput{}, err
	}
	typ, err := parseRecordType(c.typ)
	if err != nil {
		return api.RecordInput{}, err
	}
	in := api.RecordInput{
		Amount:           amount,
		Date:             c.date,
		FundID:           c.fund,
		CorrelatedFundID: c.to,
		Type:             typ,
		Tag:              optional(c.tag),
		Note:             optional(c.note),
	}
	return in, in.Validate()
}

func (c *recordCreateCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)
	in, err := c.input()
	if err != nil {
		fmt.Fprintf(opts.errOut, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, sess, err := connect(opts)
	if err != nil {
		return opts.errorf("%v", err)
	}
	a.store.Funds.GetFunds(ctx, sess)

	res := a.store.Records.CreateRecord(ctx, sess, in)
	return printResult(opts, res, func(changed []api.Fund) string {
		return "Record created.\n\n" + fundsMarkdown(changed, a.cfg.Currency)
	})
}

type recordUpdateCmd struct {
	amount string
	date   string
	fund   string
	to     string
	typ    string
	tag    string
	note   string
}

func (*recordUpdateCmd) Name() string     { return "update" }
func (*recordUpdateCmd) Synopsis() string { return "change fields of a record" }
func (*recordUpdateCmd) Usage() string {
	return `luthen record update [-amount n] [-date d] [-fund id] [-to id] [-type t] [-tag t] [-note n] <id>

  Only the flags given are sent.
`
}

func (c *recordUpdateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "amount", "", "new amount")
	f.StringVar(&c.date, "date", "", "new date")
	f.StringVar(&c.fund, "fund", "", "new fund id")
	f.StringVar(&c.to, "to", "", "new second fund id")
	f.StringVar(&c.typ, "type", "", "new record type")
	f.StringVar(&c.tag, "tag", "", "new tag")
	f.StringVar(&c.note, "note", "", "new note")
}

// patch builds a patch holding only the flags that were set on f.
func (c *recordUpdateCmd) patch(f *flag.FlagSet) (api.RecordPatch, error) {
	var p api.RecordPatch
	var err error
	f.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "amount":
			var a api.Amount
			if a, err = api.ParseAmount(c.amount); err == nil {
				p.Amount = &a
			}
		case "date":
			p.Date = &c.date
		case "fund":
			p.FundID = &c.fund
		case "to":
			p.CorrelatedFundID = &c.to
		case "type":
			var t api.RecordType
			if t, err = parseRecordType(c.typ); err == nil {
				p.Type = &t
			}
		case "tag":
			p.Tag = &c.tag
		case "note":
			p.Note = &c.note
		}
	})
	return p, err
}

func (c *recordUpdateCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)
	if f.NArg() != 1 {
		fmt.Fprintln(opts.errOut, "Error: exactly one record id is required")
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)
	p, err := c.patch(f)
	if err != nil {
		fmt.Fprintf(opts.errOut, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, sess, err := connect(opts)
	if err != nil {
		return opts.errorf("%v", err)
	}
	a.store.Funds.GetFunds(ctx, sess)

	res := a.store.Records.UpdateRecord(ctx, sess, id, p)
	return printResult(opts, res, func(upd api.RecordUpdate) string {
		return recordsMarkdown([]api.Record{upd.Record}, a.store.Funds.Funds(), a.cfg.Locale, a.cfg.Currency) +
			"\n" + fundsMarkdown(upd.Funds, a.cfg.Currency)
	})
}

type recordDeleteCmd struct{}

func (*recordDeleteCmd) Name() string           { return "delete" }
func (*recordDeleteCmd) Synopsis() string       { return "delete a record" }
func (*recordDeleteCmd) Usage() string          { return "luthen record delete <id>\n" }
func (*recordDeleteCmd) SetFlags(*flag.FlagSet) {}

func (*recordDeleteCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)
	if f.NArg() != 1 {
		fmt.Fprintln(opts.errOut, "Error: usage: luthen record delete <id>")
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)

	a, sess, err := connect(opts)
	if err != nil {
		return opts.errorf("%v", err)
	}
	a.store.Funds.GetFunds(ctx, sess)

	res := a.store.Records.DeleteRecord(ctx, sess, id)
	return printResult(opts, res, func(changed []api.Fund) string {
		return fmt.Sprintf("Deleted record `%s`.\n\n", id) + fundsMarkdown(changed, a.cfg.Currency)
	})
}

// optional maps an empty flag to a null field.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
