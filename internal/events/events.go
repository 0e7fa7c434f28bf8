// Package events is the in-process bus the stores use to notify each other.
// Publish is synchronous: when it returns every handler has run, so an
// effect on another store is part of the same logical operation.
package events

import (
	"sync"

	"github.com/luthenlog/luthen/pkg/api"
)

// Event is implemented by every message carried on the bus.
type Event interface {
	event()
}

// FundsChanged carries funds whose state the server reported after a record
// mutation, typically new balances.
type FundsChanged struct {
	Funds []api.Fund
}

// SessionEnded is published on logout. Every cache must be empty afterwards.
type SessionEnded struct{}

func (FundsChanged) event() {}
func (SessionEnded) event() {}

// Handler reacts to an event.
type Handler func(Event)

// Bus dispatches events to subscribers in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for every event published after this call.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers e to every handler and returns once they all returned.
// Handlers may publish further events.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
