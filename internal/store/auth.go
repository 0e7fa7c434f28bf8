package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/luthenlog/luthen/internal/events"
	"github.com/luthenlog/luthen/pkg/api"
)

// ErrMissingToken is returned when logging in without demo mode or a token.
var ErrMissingToken = errors.New("an access token is required outside demo mode")

// Auth tracks whether the user is anonymous, in demo mode or authenticated.
type Auth struct {
	mu    sync.RWMutex
	state api.AuthState
	token string

	users  UserAPI
	bus    *events.Bus
	logger *slog.Logger
}

// newAuth creates an Auth in the Anonymous state. Logout publishes
// SessionEnded on bus.
func newAuth(users UserAPI, bus *events.Bus, logger *slog.Logger) *Auth {
	return &Auth{
		users:  users,
		bus:    bus,
		logger: logger.With("component", "auth_store"),
	}
}

// State reports the current authentication state.
func (a *Auth) State() api.AuthState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Auth) IsAuthenticated() bool { return a.State() == api.Authenticated }

func (a *Auth) InDemo() bool { return a.State() == api.Demo }

// Session returns the credentials requests should be made with.
func (a *Auth) Session() api.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return api.Session{Demo: a.state == api.Demo, Token: a.token}
}

// Login enters demo mode, or the authenticated state with token.
func (a *Auth) Login(demo bool, token string) error {
	if !demo && token == "" {
		return ErrMissingToken
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if demo {
		a.state, a.token = api.Demo, ""
	} else {
		a.state, a.token = api.Authenticated, token
	}
	a.logger.Debug("logged in", "state", a.state.String())
	return nil
}

// LoginForDemo enters demo mode.
func (a *Auth) LoginForDemo() {
	_ = a.Login(true, "")
}

// Logout returns to Anonymous. Fund and record caches are empty when it
// returns.
func (a *Auth) Logout() {
	a.mu.Lock()
	a.state, a.token = api.Anonymous, ""
	a.mu.Unlock()

	a.logger.Debug("logged out")
	a.bus.Publish(events.SessionEnded{})
}

// DeleteUser deletes the account behind token. The auth state is left as is;
// callers log out after a successful deletion.
func (a *Auth) DeleteUser(ctx context.Context, token string) api.Result[json.RawMessage] {
	return a.users.Delete(ctx, token)
}
