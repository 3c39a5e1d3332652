// Package router provides a typed publish/subscribe dispatcher keyed by
// message type. Handlers of one type run in registration order, and a
// failing handler never stops its siblings.
package router

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"posync/internal/domain"
)

// Handler receives the payload of a dispatched envelope.
type Handler func(payload json.RawMessage) error

type subscription struct {
	id      int
	msgType string
	handler Handler
	removed atomic.Bool
}

// Router dispatches envelopes to the handlers subscribed to their type.
type Router struct {
	mu     sync.Mutex
	nextID int
	byType map[string][]*subscription
	byID   map[int]*subscription
	log    *slog.Logger
}

// New creates an empty Router. A nil logger falls back to slog.Default.
func New(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		byType: make(map[string][]*subscription),
		byID:   make(map[int]*subscription),
		log:    log.With("component", "router"),
	}
}

// Subscribe registers h under msgType and returns a handle for Unsubscribe.
func (r *Router) Subscribe(msgType string, h Handler) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	sub := &subscription{id: r.nextID, msgType: msgType, handler: h}
	r.byType[msgType] = append(r.byType[msgType], sub)
	r.byID[sub.id] = sub
	return sub.id
}

// Unsubscribe removes a registration. It is safe to call from inside a
// handler; the removed handler is skipped for the rest of any dispatch in
// progress. Unknown ids are ignored.
func (r *Router) Unsubscribe(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[id]
	if !ok {
		return
	}
	sub.removed.Store(true)
	delete(r.byID, id)

	// Copy-on-write so snapshots held by in-flight dispatches stay intact.
	old := r.byType[sub.msgType]
	subs := make([]*subscription, 0, len(old))
	for _, s := range old {
		if s.id != id {
			subs = append(subs, s)
		}
	}
	if len(subs) == 0 {
		delete(r.byType, sub.msgType)
	} else {
		r.byType[sub.msgType] = subs
	}
}

// Count returns the number of handlers subscribed to msgType.
func (r *Router) Count(msgType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byType[msgType])
}

// Dispatch delivers env.Payload to every handler subscribed to env.Type, once
// each, in registration order. Handler errors and panics are logged.
// Dispatch returns the number of handlers that completed without error.
func (r *Router) Dispatch(env domain.Envelope) int {
	r.mu.Lock()
	// Subscribe appends to the slice and Unsubscribe replaces it, so this
	// header is a stable snapshot once the lock is released.
	subs := r.byType[env.Type]
	r.mu.Unlock()

	delivered := 0
	for _, sub := range subs {
		if sub.removed.Load() {
			continue
		}
		if err := r.invoke(sub, env.Payload); err != nil {
			r.log.Error("handler failed", "type", env.Type, "subID", sub.id, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (r *Router) invoke(sub *subscription, payload json.RawMessage) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return sub.handler(payload)
}
