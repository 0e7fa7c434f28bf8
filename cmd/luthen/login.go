package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/subcommands"
	"golang.org/x/oauth2"

	"github.com/luthenlog/luthen/pkg/client"
	"github.com/luthenlog/luthen/pkg/config"
)

type loginCmd struct{}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in through the browser and save the access token" }
func (*loginCmd) Usage() string {
	return `luthen login

  Opens the identity provider sign-in page, waits for the redirect on
  localhost and saves the access token to LUTHEN_TOKEN_FILE.
`
}
func (*loginCmd) SetFlags(*flag.FlagSet) {}

func (*loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return opts.errorf("%v", err)
	}
	if err := cfg.ValidateAuth(); err != nil {
		return opts.errorf("%v", err)
	}

	var authOpts []oauth2.AuthCodeOption
	if cfg.AuthAudience != "" {
		authOpts = append(authOpts, client.AudienceOption(cfg.AuthAudience))
	}

	token, err := client.Authorize(ctx, client.Auth0Config(cfg.AuthDomain, cfg.AuthClientID), opts.out, authOpts...)
	if err != nil {
		return opts.errorf("login failed: %v", err)
	}
	if err := client.SaveToken(cfg.TokenFile, token); err != nil {
		return opts.errorf("%v", err)
	}

	fmt.Fprintf(opts.out, "✓ Logged in. Token saved to %s\n", cfg.TokenFile)
	return subcommands.ExitSuccess
}

type logoutCmd struct{}

func (*logoutCmd) Name() string     { return "logout" }
func (*logoutCmd) Synopsis() string { return "forget the saved access token" }
func (*logoutCmd) Usage() string {
	return `luthen logout

  Removes the saved access token.
`
}
func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (*logoutCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return opts.errorf("%v", err)
	}

	removed, err := removeToken(cfg.TokenFile)
	if err != nil {
		return opts.errorf("%v", err)
	}
	if !removed {
		fmt.Fprintln(opts.out, "Not logged in.")
		return subcommands.ExitSuccess
	}
	fmt.Fprintln(opts.out, "✓ Logged out.")
	return subcommands.ExitSuccess
}

// removeToken deletes the token file. A missing file is not an error.
func removeToken(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("removing token file: %w", err)
	}
	return true, nil
}
