package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/luthenlog/luthen/internal/events"
	"github.com/luthenlog/luthen/pkg/api"
)

// Records caches the records of the last listing. Record mutations report
// the funds they touched on the bus; the fund cache applies them.
type Records struct {
	mu      sync.RWMutex
	records []api.Record
	epoch   uint64

	svc    RecordAPI
	bus    *events.Bus
	logger *slog.Logger
}

// newRecords creates an empty record cache. Fund balances changed by record
// mutations are published on bus.
func newRecords(svc RecordAPI, bus *events.Bus, logger *slog.Logger) *Records {
	r := &Records{
		svc:    svc,
		bus:    bus,
		logger: logger.With("component", "record_store"),
	}
	bus.Subscribe(r.handle)
	return r
}

func (r *Records) handle(e events.Event) {
	if _, ok := e.(events.SessionEnded); ok {
		r.mu.Lock()
		r.records = nil
		r.epoch++
		r.mu.Unlock()
	}
}

// Records returns a copy of the cached records.
func (r *Records) Records() []api.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.records)
}

func (r *Records) filter(keep func(api.Record) bool) []api.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []api.Record
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Credits returns the cached credit records.
func (r *Records) Credits() []api.Record {
	return r.filter(func(rec api.Record) bool { return rec.Type == api.Credit })
}

// Debits returns the cached debit records.
func (r *Records) Debits() []api.Record {
	return r.filter(func(rec api.Record) bool { return rec.Type == api.Debit })
}

// Transfers returns the cached records linking two funds.
func (r *Records) Transfers() []api.Record {
	return r.filter(api.Record.IsTransfer)
}

// SetRecords replaces the whole cache.
func (r *Records) SetRecords(records []api.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = slices.Clone(records)
}

// ReplaceRecord overwrites the record with the same id in place. It reports
// false and changes nothing when no such record is cached.
func (r *Records) ReplaceRecord(rec api.Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaceLocked(rec)
}

func (r *Records) replaceLocked(rec api.Record) bool {
	i := slices.IndexFunc(r.records, func(c api.Record) bool { return c.ID == rec.ID })
	if rec.ID == "" || i < 0 {
		r.logger.Warn("replace of uncached record ignored", "record_id", rec.ID)
		return false
	}
	r.records[i] = rec
	return true
}

// RemoveRecord drops the record with id and applies the funds the deletion
// touched.
func (r *Records) RemoveRecord(id string, funds []api.Fund) {
	r.mu.Lock()
	r.records = slices.DeleteFunc(r.records, func(c api.Record) bool { return c.ID == id })
	r.mu.Unlock()

	r.fundsChanged(funds)
}

// Clear empties the cache.
func (r *Records) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

func (r *Records) fundsChanged(funds []api.Fund) {
	if len(funds) == 0 {
		return
	}
	r.bus.Publish(events.FundsChanged{Funds: funds})
}

func (r *Records) currentEpoch() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.epoch
}

// apply runs fn under the lock unless a session ended since epoch. It
// reports whether fn ran.
func (r *Records) apply(epoch uint64, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch != epoch {
		r.logger.Debug("discarding answer from an ended session")
		return false
	}
	fn()
	return true
}

// GetRecords lists records matching filter and replaces the cache on
// success.
func (r *Records) GetRecords(ctx context.Context, sess api.Session, filter api.RecordFilter) api.Result[[]api.Record] {
	epoch := r.currentEpoch()
	res := r.svc.Read(ctx, sess, filter)
	if res.OK() {
		r.apply(epoch, func() { r.records = slices.Clone(res.Data()) })
	}
	return res
}

// CreateRecord creates a record. On success the returned funds, one or two
// depending on the record, are merged into the fund cache.
func (r *Records) CreateRecord(ctx context.Context, sess api.Session, in api.RecordInput) api.Result[[]api.Fund] {
	epoch := r.currentEpoch()
	res := r.svc.Create(ctx, sess, in)
	if res.OK() && r.currentEpoch() == epoch {
		r.fundsChanged(res.Data())
	}
	return res
}

// UpdateRecord patches a record, replaces it in the cache and merges the
// funds whose balances changed.
func (r *Records) UpdateRecord(ctx context.Context, sess api.Session, id string, patch api.RecordPatch) api.Result[api.RecordUpdate] {
	epoch := r.currentEpoch()
	res := r.svc.Update(ctx, sess, id, patch)
	if !res.OK() {
		return res
	}
	upd := res.Data()
	if r.apply(epoch, func() { r.replaceLocked(upd.Record) }) {
		r.fundsChanged(upd.Funds)
	}
	return res
}

// DeleteRecord deletes a record, removes it from the cache and merges the
// funds whose balances changed.
func (r *Records) DeleteRecord(ctx context.Context, sess api.Session, id string) api.Result[[]api.Fund] {
	epoch := r.currentEpoch()
	res := r.svc.Delete(ctx, sess, id)
	if !res.OK() {
		return res
	}
	removed := r.apply(epoch, func() {
		r.records = slices.DeleteFunc(r.records, func(c api.Record) bool { return c.ID == id })
	})
	if removed {
		r.fundsChanged(res.Data())
	}
	return res
}
