package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luthenlog/luthen/internal/store"
	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/client"
	"github.com/luthenlog/luthen/pkg/config"
	"github.com/luthenlog/luthen/pkg/logging"
	"github.com/luthenlog/luthen/pkg/service"
)

// options hold the global flags and the output streams. They travel to every
// command as the first Execute argument.
type options struct {
	configPath string
	demo       bool
	plain      bool
	asJSON     bool

	out    io.Writer
	errOut io.Writer
}

func optionsFrom(args []interface{}) *options {
	if len(args) > 0 {
		if o, ok := args[0].(*options); ok {
			return o
		}
	}
	panic("luthen: command executed without options")
}

// errorf prints a failure to stderr and returns ExitFailure.
func (o *options) errorf(format string, a ...any) subcommands.ExitStatus {
	fmt.Fprintf(o.errOut, "Error: "+format+"\n", a...)
	return subcommands.ExitFailure
}

// app is what a command needs to talk to the API.
type app struct {
	opts     *options
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	client   *client.Client
	store    *store.Store
}

// newApp loads configuration and wires the client, the services and the
// stores. The session is restored from -demo or the saved token.
func newApp(opts *options) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.JSON = cfg.LogJSON
	logCfg.Output = opts.errOut
	logger := logging.Setup(logCfg)

	registry := prometheus.NewRegistry()
	c, err := client.New(client.Config{
		BaseURL:       cfg.APIURL,
		Timeout:       cfg.Timeout(),
		RetryAttempts: cfg.RetryAttempts,
		RateLimit:     cfg.RateLimit,
		Registerer:    registry,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	a := &app{
		opts:     opts,
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		client:   c,
		store: store.New(store.Deps{
			Funds:   service.NewFundService(c),
			Records: service.NewRecordService(c),
			Users:   service.NewUserService(c),
			Logger:  logger,
		}),
	}

	if err := a.restoreSession(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) restoreSession() error {
	if a.opts.demo {
		a.store.Auth.LoginForDemo()
		return nil
	}

	token, err := client.TokenFromFile(a.cfg.TokenFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading saved token: %w", err)
	}
	return a.store.Auth.Login(false, token.AccessToken)
}

// session returns the credentials of the restored session, or an error when
// nobody is logged in.
func (a *app) session() (api.Session, error) {
	if a.store.Auth.State() == api.Anonymous {
		return api.Session{}, errors.New("not logged in (run 'luthen login' or pass -demo)")
	}
	return a.store.Auth.Session(), nil
}

// connect is newApp followed by session.
func connect(opts *options) (*app, api.Session, error) {
	a, err := newApp(opts)
	if err != nil {
		return nil, api.Session{}, err
	}
	sess, err := a.session()
	if err != nil {
		return nil, api.Session{}, err
	}
	return a, sess, nil
}
