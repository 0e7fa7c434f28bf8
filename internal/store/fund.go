package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"github.com/luthenlog/luthen/internal/events"
	"github.com/luthenlog/luthen/pkg/api"
)

// Funds caches the user's funds. Ids are unique on the server; the cache
// does not re-check it.
type Funds struct {
	mu    sync.RWMutex
	funds []api.Fund
	// epoch advances on every session end. Answers to requests issued in an
	// earlier epoch are not applied.
	epoch uint64

	svc    FundAPI
	logger *slog.Logger
}

// newFunds creates an empty fund cache following FundsChanged and
// SessionEnded on bus.
func newFunds(svc FundAPI, bus *events.Bus, logger *slog.Logger) *Funds {
	f := &Funds{
		svc:    svc,
		logger: logger.With("component", "fund_store"),
	}
	bus.Subscribe(f.handle)
	return f
}

func (f *Funds) handle(e events.Event) {
	switch ev := e.(type) {
	case events.FundsChanged:
		for _, fund := range ev.Funds {
			f.ReplaceFund(fund)
		}
	case events.SessionEnded:
		f.mu.Lock()
		f.funds = nil
		f.epoch++
		f.mu.Unlock()
	}
}

// Funds returns a copy of the cached funds.
func (f *Funds) Funds() []api.Fund {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.funds)
}

// Main returns the fund flagged as the default one.
func (f *Funds) Main() (api.Fund, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, fund := range f.funds {
		if fund.IsMain {
			return fund, true
		}
	}
	return api.Fund{}, false
}

// SetFunds replaces the whole cache.
func (f *Funds) SetFunds(funds []api.Fund) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funds = slices.Clone(funds)
}

// AddFund appends fund to the cache.
func (f *Funds) AddFund(fund api.Fund) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funds = append(f.funds, fund)
}

// ReplaceFund overwrites the fund with the same id in place. It reports
// false and changes nothing when no such fund is cached.
func (f *Funds) ReplaceFund(fund api.Fund) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replaceLocked(fund)
}

func (f *Funds) replaceLocked(fund api.Fund) bool {
	i := slices.IndexFunc(f.funds, func(c api.Fund) bool { return c.ID == fund.ID })
	if i < 0 {
		f.logger.Warn("replace of uncached fund ignored", "fund_id", fund.ID)
		return false
	}
	f.funds[i] = fund
	return true
}

// RemoveFund drops the fund with id, if cached.
func (f *Funds) RemoveFund(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funds = slices.DeleteFunc(f.funds, func(c api.Fund) bool { return c.ID == id })
}

// Clear empties the cache.
func (f *Funds) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funds = nil
}

func (f *Funds) currentEpoch() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.epoch
}

// apply runs fn under the lock unless a session ended since epoch.
func (f *Funds) apply(epoch uint64, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch {
		f.logger.Debug("discarding answer from an ended session")
		return
	}
	fn()
}

// GetFunds loads the funds and replaces the cache on success.
func (f *Funds) GetFunds(ctx context.Context, sess api.Session) api.Result[[]api.Fund] {
	epoch := f.currentEpoch()
	res := f.svc.Read(ctx, sess)
	if res.OK() {
		f.apply(epoch, func() { f.funds = slices.Clone(res.Data()) })
	}
	return res
}

// CreateFund creates a fund and appends it on success.
func (f *Funds) CreateFund(ctx context.Context, sess api.Session, name string) api.Result[api.Fund] {
	epoch := f.currentEpoch()
	res := f.svc.Create(ctx, sess, name)
	if res.OK() {
		f.apply(epoch, func() { f.funds = append(f.funds, res.Data()) })
	}
	return res
}

// UpdateFund renames a fund and replaces it on success.
func (f *Funds) UpdateFund(ctx context.Context, sess api.Session, patch api.FundPatch) api.Result[api.Fund] {
	epoch := f.currentEpoch()
	res := f.svc.Update(ctx, sess, patch)
	if res.OK() {
		f.apply(epoch, func() { f.replaceLocked(res.Data()) })
	}
	return res
}

// DeleteFund deletes a fund and removes it on success.
func (f *Funds) DeleteFund(ctx context.Context, sess api.Session, id string) api.Result[json.RawMessage] {
	epoch := f.currentEpoch()
	res := f.svc.Delete(ctx, sess, id)
	if res.OK() {
		f.apply(epoch, func() {
			f.funds = slices.DeleteFunc(f.funds, func(c api.Fund) bool { return c.ID == id })
		})
	}
	return res
}
