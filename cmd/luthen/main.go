// Command luthen manages personal funds and records from the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

func main() {
	opts := &options{out: os.Stdout, errOut: os.Stderr}
	commander := newCommander(flag.CommandLine, path.Base(os.Args[0]), opts)

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(int(commander.Execute(ctx, opts)))
}

// newCommander registers the global flags on fs and every command.
func newCommander(fs *flag.FlagSet, name string, opts *options) *subcommands.Commander {
	fs.StringVar(&opts.configPath, "config", "config.json", "path to the optional JSON config file")
	fs.BoolVar(&opts.demo, "demo", false, "use the public demo endpoints instead of the saved login")
	fs.BoolVar(&opts.plain, "plain", false, "print tables as raw markdown")
	fs.BoolVar(&opts.asJSON, "json", false, "print the raw result envelope as JSON")

	commander := subcommands.NewCommander(fs, name)
	commander.Output = opts.out
	commander.Error = opts.errOut

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&loginCmd{}, "session")
	commander.Register(&logoutCmd{}, "session")
	commander.Register(&statusCmd{}, "session")
	commander.Register(&deleteAccountCmd{}, "session")

	commander.Register(&fundCmd{}, "ledger")
	commander.Register(&recordCmd{}, "ledger")

	commander.Register(&exportCmd{}, "export")
	return commander
}
