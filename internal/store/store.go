// Package store keeps the client's last known copy of the server state: the
// session, the funds and the records. Stores are plain values wired together
// by New; nothing here is global.
//
// Async methods call the API outside the store lock and apply the answer
// under it, only when the call succeeded. Overlapping calls settle in
// arrival order, so the last response to arrive wins. Answers that arrive
// after a logout are discarded.
package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/luthenlog/luthen/internal/events"
	"github.com/luthenlog/luthen/pkg/api"
)

// FundAPI is the fund service used by Funds.
type FundAPI interface {
	Create(ctx context.Context, sess api.Session, name string) api.Result[api.Fund]
	Read(ctx context.Context, sess api.Session) api.Result[[]api.Fund]
	Update(ctx context.Context, sess api.Session, patch api.FundPatch) api.Result[api.Fund]
	Delete(ctx context.Context, sess api.Session, id string) api.Result[json.RawMessage]
}

// RecordAPI is the record service used by Records.
type RecordAPI interface {
	Create(ctx context.Context, sess api.Session, in api.RecordInput) api.Result[[]api.Fund]
	Read(ctx context.Context, sess api.Session, filter api.RecordFilter) api.Result[[]api.Record]
	Update(ctx context.Context, sess api.Session, id string, patch api.RecordPatch) api.Result[api.RecordUpdate]
	Delete(ctx context.Context, sess api.Session, id string) api.Result[[]api.Fund]
}

// UserAPI is the account service used by Auth.
type UserAPI interface {
	Delete(ctx context.Context, token string) api.Result[json.RawMessage]
}

// Deps are the services the stores delegate to.
type Deps struct {
	Funds   FundAPI
	Records RecordAPI
	Users   UserAPI
	Logger  *slog.Logger
}

// Store bundles the three stores sharing one event bus.
type Store struct {
	Auth    *Auth
	Funds   *Funds
	Records *Records
	Bus     *events.Bus
}

// New creates the stores and subscribes them to a fresh bus.
func New(d Deps) *Store {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := events.NewBus()

	return &Store{
		Auth:    newAuth(d.Users, bus, logger),
		Funds:   newFunds(d.Funds, bus, logger),
		Records: newRecords(d.Records, bus, logger),
		Bus:     bus,
	}
}
