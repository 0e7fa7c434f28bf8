package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/format"
)

// printMarkdown renders md for the terminal, or prints it as is with -plain.
func printMarkdown(opts *options, md string) {
	if opts.plain {
		fmt.Fprint(opts.out, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Fprint(opts.out, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(opts.out, md)
		return
	}
	fmt.Fprint(opts.out, out)
}

// printResult prints res as a JSON envelope with -json, otherwise the
// markdown produced by render or the failure message.
func printResult[T any](opts *options, res api.Result[T], render func(T) string) subcommands.ExitStatus {
	if opts.asJSON {
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return opts.errorf("encoding result: %v", err)
		}
		fmt.Fprintln(opts.out, string(b))
		if !res.OK() {
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	if !res.OK() {
		return opts.errorf("%s", res.ErrorMessage())
	}
	printMarkdown(opts, render(res.Data()))
	return subcommands.ExitSuccess
}

// cell escapes the characters that would break a markdown table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func fundsMarkdown(funds []api.Fund, currency string) string {
	var b strings.Builder
	b.WriteString("# Funds\n\n")
	if len(funds) == 0 {
		b.WriteString("No funds yet.\n")
		return b.String()
	}

	b.WriteString("| ID | Name | Balance | Main |\n")
	b.WriteString("|:---|:---|---:|:---:|\n")
	total := api.NewAmount(0)
	for _, f := range funds {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			cell(f.ID), cell(f.Name), format.Amount(f.Balance, currency), format.Bool(f.IsMain))
		total = api.Amount{Decimal: total.Add(f.Balance.Decimal)}
	}
	fmt.Fprintf(&b, "| | **Total** | **%s** | |\n", format.Amount(total, currency))
	return b.String()
}

func recordsMarkdown(records []api.Record, funds []api.Fund, locale, currency string) string {
	names := make(map[string]string, len(funds))
	for _, f := range funds {
		names[f.ID] = f.Name
	}
	fundName := func(id string) string {
		if id == "" {
			return "-"
		}
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	var b strings.Builder
	b.WriteString("# Records\n\n")
	if len(records) == 0 {
		b.WriteString("No records match.\n")
		return b.String()
	}

	b.WriteString("| ID | Date | Type | Fund | To | Amount | Tag | Note |\n")
	b.WriteString("|:---|:---|:---|:---|:---|---:|:---|:---|\n")
	for _, r := range records {
		date, err := format.TableDate(r.Date, locale)
		if err != nil {
			date = r.Date
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			cell(r.ID),
			cell(date),
			format.Type(r),
			cell(fundName(r.FundID)),
			cell(fundName(r.CorrelatedFundID)),
			format.Amount(r.Amount, currency),
			cell(format.Optional(r.Tag)),
			cell(format.Optional(r.Note)),
		)
	}
	return b.String()
}
