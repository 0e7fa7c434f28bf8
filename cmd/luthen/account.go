package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/luthenlog/luthen/pkg/api"
)

type deleteAccountCmd struct {
	yes bool
}

func (*deleteAccountCmd) Name() string     { return "delete-account" }
func (*deleteAccountCmd) Synopsis() string { return "delete the account and every fund and record in it" }
func (*deleteAccountCmd) Usage() string {
	return `luthen delete-account -yes

  Deletes the logged-in account on the server, then logs out.
  Not available in demo mode.
`
}

func (c *deleteAccountCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "confirm the deletion")
}

func (c *deleteAccountCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)
	if !c.yes {
		fmt.Fprintln(opts.errOut, "Refusing to delete the account without -yes.")
		return subcommands.ExitUsageError
	}

	a, err := newApp(opts)
	if err != nil {
		return opts.errorf("%v", err)
	}
	if a.store.Auth.State() != api.Authenticated {
		return opts.errorf("delete-account needs a logged-in session (run 'luthen login')")
	}

	res := a.store.Auth.DeleteUser(ctx, a.store.Auth.Session().Token)
	if !res.OK() {
		return printResult(opts, res, nil)
	}

	a.store.Auth.Logout()
	if _, err := removeToken(a.cfg.TokenFile); err != nil {
		return opts.errorf("%v", err)
	}

	return printResult(opts, res, func(json.RawMessage) string {
		return "Account deleted. You have been logged out.\n"
	})
}
