package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"github.com/luthenlog/luthen/pkg/api"
)

type fundCmd struct{}

func (*fundCmd) Name() string     { return "fund" }
func (*fundCmd) Synopsis() string { return "list, create, rename and delete funds" }
func (*fundCmd) Usage() string {
	return `luthen fund <list|create|rename|delete> [args]
`
}
func (*fundCmd) SetFlags(*flag.FlagSet) {}

func (*fundCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	commander := subcommands.NewCommander(f, "fund")
	opts := optionsFrom(args)
	commander.Output, commander.Error = opts.out, opts.errOut
	commander.Register(&fundListCmd{}, "")
	commander.Register(&fundCreateCmd{}, "")
	commander.Register(&fundRenameCmd{}, "")
	commander.Register(&fundDeleteCmd{}, "")
	return commander.Execute(ctx, args...)
}

type fundListCmd struct{}

func (*fundListCmd) Name() string           { return "list" }
func (*fundListCmd) Synopsis() string       { return "list funds with their balances" }
func (*fundListCmd) Usage() string          { return "luthen fund list\n" }
func (*fundListCmd) SetFlags(*flag.FlagSet) {}

func (*fundListCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)
	a, sess, err := connect(opts)
	if err != nil {
		return opts.errorf("%v", err)
	}

	res := a.store.Funds.GetFunds(ctx, sess)
	return printResult(opts, res, func([]api.Fund) string {
		return fundsMarkdown(a.store.Funds.Funds(), a.cfg.Currency)
	})
}

type fundCreateCmd struct{}

func (*fundCreateCmd) Name() string           { return "create" }
func (*fundCreateCmd) Synopsis() string       { return "create a fund" }
func (*fundCreateCmd) Usage() string          { return "luthen fund create <name>\n" }
func (*fundCreateCmd) SetFlags(*flag.FlagSet) {}

func (*fundCreateCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)
	name := strings.TrimSpace(strings.Join(f.Args(), " "))
	if name == "" {
		fmt.Fprintln(opts.errOut, "Error: a fund name is required")
		return subcommands.ExitUsageError
	}

	a, sess, err := connect(opts)
	if err != nil {
		return opts.errorf("%v", err)
	}

	res := a.store.Funds.CreateFund(ctx, sess, name)
	return printResult(opts, res, func(fund api.Fund) string {
		return fmt.Sprintf("Created fund **%s** (`%s`).\n", cell(fund.Name), fund.ID)
	})
}

type fundRenameCmd struct{}

func (*fundRenameCmd) Name() string           { return "rename" }
func (*fundRenameCmd) Synopsis() string       { return "rename a fund" }
func (*fundRenameCmd) Usage() string          { return "luthen fund rename <id> <new name>\n" }
func (*fundRenameCmd) SetFlags(*flag.FlagSet) {}

func (*fundRenameCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)
	if f.NArg() < 2 {
		fmt.Fprintln(opts.errOut, "Error: usage: luthen fund rename <id> <new name>")
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)
	name := strings.TrimSpace(strings.Join(f.Args()[1:], " "))

	a, sess, err := connect(opts)
	if err != nil {
		return opts.errorf("%v", err)
	}

	res := a.store.Funds.UpdateFund(ctx, sess, api.FundPatch{ID: id, Name: name})
	return printResult(opts, res, func(fund api.Fund) string {
		return fmt.Sprintf("Renamed fund `%s` to **%s**.\n", fund.ID, cell(fund.Name))
	})
}

type fundDeleteCmd struct{}

func (*fundDeleteCmd) Name() string           { return "delete" }
func (*fundDeleteCmd) Synopsis() string       { return "delete a fund" }
func (*fundDeleteCmd) Usage() string          { return "luthen fund delete <id>\n" }
func (*fundDeleteCmd) SetFlags(*flag.FlagSet) {}

func (*fundDeleteCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)
	if f.NArg() != 1 {
		fmt.Fprintln(opts.errOut, "Error: usage: luthen fund delete <id>")
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)

	a, sess, err := connect(opts)
	if err != nil {
		return opts.errorf("%v", err)
	}

	res := a.store.Funds.DeleteFund(ctx, sess, id)
	return printResult(opts, res, func(json.RawMessage) string {
		return fmt.Sprintf("Deleted fund `%s`.\n", id)
	})
}
