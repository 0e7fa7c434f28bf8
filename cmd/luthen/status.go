package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luthenlog/luthen/pkg/client"
	"github.com/luthenlog/luthen/pkg/config"
)

type statusCmd struct{}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "check configuration, login and API connectivity" }
func (*statusCmd) Usage() string {
	return `luthen status

  Checks the configuration, the saved token and that the API answers.
`
}
func (*statusCmd) SetFlags(*flag.FlagSet) {}

func (*statusCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	opts := optionsFrom(args)
	w := opts.out

	fmt.Fprintln(w, "=== Luthen Status ===")
	fmt.Fprintln(w)

	allGood := true

	cfg := checkConfig(opts, &allGood)
	if cfg != nil && !opts.demo {
		checkToken(opts, cfg, &allGood)
	}
	if cfg != nil && cfg.APIURL != "" {
		checkAPIConnectivity(ctx, opts, &allGood)
	}

	printFinalStatus(opts, allGood)
	if !allGood {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func checkConfig(opts *options, allGood *bool) *config.Config {
	w := opts.out
	fmt.Fprintf(w, "Config (%s): ", opts.configPath)
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		*allGood = false
		return nil
	}
	fmt.Fprintln(w, "✓ Loaded")

	fmt.Fprint(w, "API URL: ")
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		*allGood = false
	} else {
		fmt.Fprintf(w, "✓ %s\n", cfg.APIURL)
	}

	fmt.Fprint(w, "Identity provider: ")
	if err := cfg.ValidateAuth(); err != nil {
		fmt.Fprintf(w, "⚠ %v\n", err)
	} else {
		fmt.Fprintf(w, "✓ %s\n", cfg.AuthDomain)
	}
	return cfg
}

func checkToken(opts *options, cfg *config.Config, allGood *bool) {
	w := opts.out
	fmt.Fprintf(w, "Access token (%s): ", cfg.TokenFile)
	token, err := client.TokenFromFile(cfg.TokenFile)
	if err != nil {
		fmt.Fprintln(w, "✗ Not found (run 'luthen login', or use -demo)")
		*allGood = false
		return
	}

	claims, err := client.InspectToken(token.AccessToken)
	if err != nil {
		// Opaque tokens carry no claims to inspect.
		fmt.Fprintln(w, "✓ Found (opaque)")
		return
	}
	if claims.Expired(time.Now()) {
		fmt.Fprintf(w, "✗ Expired at %s (run 'luthen login')\n", claims.ExpiresAt.Format(time.RFC3339))
		*allGood = false
		return
	}
	fmt.Fprintf(w, "✓ Valid for %s", claims.Subject)
	if !claims.ExpiresAt.IsZero() {
		fmt.Fprintf(w, " (expires: %s)", claims.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Fprintln(w)
}

func checkAPIConnectivity(ctx context.Context, opts *options, allGood *bool) {
	w := opts.out
	fmt.Fprintln(w)
	fmt.Fprintln(w, "API Connectivity:")

	a, err := newApp(opts)
	if err != nil {
		fmt.Fprintf(w, "  Client: ✗ %v\n", err)
		*allGood = false
		return
	}
	fmt.Fprintf(w, "  Session: %s\n", a.store.Auth.State())

	sess, err := a.session()
	if err != nil {
		fmt.Fprintf(w, "  Funds: ✗ %v\n", err)
		*allGood = false
		return
	}

	fmt.Fprint(w, "  Funds: ")
	res := a.store.Funds.GetFunds(ctx, sess)
	if !res.OK() {
		fmt.Fprintf(w, "✗ %s\n", res.ErrorMessage())
		*allGood = false
	} else {
		fmt.Fprintf(w, "✓ %d funds", len(res.Data()))
		if mainFund, ok := a.store.Funds.Main(); ok {
			fmt.Fprintf(w, " (main: %s)", mainFund.Name)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "  Requests: %s\n", requestSummary(a.registry))
}

// requestSummary counts the requests recorded by the client metrics, by
// status code.
func requestSummary(reg prometheus.Gatherer) string {
	families, err := reg.Gather()
	if err != nil {
		return "unavailable"
	}

	var total float64
	var parts []string
	for _, mf := range families {
		if mf.GetName() != "luthen_client_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			total += v
			for _, l := range m.GetLabel() {
				if l.GetName() == "code" {
					parts = append(parts, fmt.Sprintf("%s=%.0f", l.GetValue(), v))
				}
			}
		}
	}
	if total == 0 {
		return "none"
	}
	return fmt.Sprintf("%.0f (%s)", total, strings.Join(parts, ", "))
}

func printFinalStatus(opts *options, allGood bool) {
	w := opts.out
	fmt.Fprintln(w)
	if allGood {
		fmt.Fprintln(w, "Status: ✓ Ready")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Run 'luthen fund list' to see your funds.")
	} else {
		fmt.Fprintln(w, "Status: ✗ Issues detected")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above, then run 'luthen status' again.")
	}
}
