package event

import (
	"slices"
	"sync"

	"github.com/meterbill/backend/internal/domain/shared"
)

// HandlerRegistry maps event types to handlers. Handlers registered without
// types receive every event.
type HandlerRegistry struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	wildcard []shared.EventHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{byType: make(map[string][]shared.EventHandler)}
}

// Register is idempotent per handler and type.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.wildcard = addOnce(r.wildcard, handler)
	}
	for _, t := range eventTypes {
		r.byType[t] = addOnce(r.byType[t], handler)
	}
}

func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	is := func(h shared.EventHandler) bool { return h == handler }
	r.wildcard = slices.DeleteFunc(r.wildcard, is)
	for t, hs := range r.byType {
		if hs = slices.DeleteFunc(hs, is); len(hs) == 0 {
			delete(r.byType, t)
		} else {
			r.byType[t] = hs
		}
	}
}

// Handlers lists typed handlers first, then wildcard ones, without repeats.
func (r *HandlerRegistry) Handlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := slices.Clone(r.byType[eventType])
	for _, h := range r.wildcard {
		out = addOnce(out, h)
	}
	return out
}

// Len counts distinct handlers
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := slices.Clone(r.wildcard)
	for _, hs := range r.byType {
		for _, h := range hs {
			all = addOnce(all, h)
		}
	}
	return len(all)
}

func addOnce(hs []shared.EventHandler, h shared.EventHandler) []shared.EventHandler {
	if slices.Contains(hs, h) {
		return hs
	}
	return append(hs, h)
}
