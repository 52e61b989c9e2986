// Package handler implements the per-data-element handler list that
// Service Modules fan out publishes to, gated by consumer module state.
package handler

import (
	"sync"
	"sync/atomic"

	"github.com/oriys/vaf/internal/sample"
)

// Entry is a single registered handler: its owning module name, the
// callback to invoke, and whether it is currently active. A handler is
// invoked iff Active is true at the moment a publish iterates the list.
// Active is its own atomic rather than a plain bool guarded by Registry's
// mutex: Publish snapshots the entry pointers under a read lock but then
// reads Active after releasing it, while StartForModule/StopForModule
// flip Active under a write lock from the control thread.
type Entry[T any] struct {
	Owner    string
	Callback func(sample.Sample[T])
	active   atomic.Bool
}

// Active reports whether this entry is currently gated on.
func (e *Entry[T]) Active() bool { return e.active.Load() }

// Registry holds the ordered list of handlers for one data element, plus
// the set of module names currently known to be live consumers (i.e.
// Operational). Registration, activation, and fan-out are all safe for
// concurrent use: registration and (de)activation run from the control
// thread during module state transitions, fan-out runs from whichever
// thread publishes (the executor thread for in-process producers, a
// wire-callback thread for wire-backed ones).
type Registry[T any] struct {
	mu            sync.RWMutex
	entries       []*Entry[T]
	activeModules map[string]bool
}

// New creates an empty Registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{activeModules: make(map[string]bool)}
}

// Register appends a new handler entry in registration order. If owner is
// already an active consumer (StartEventHandlerForModule was already
// called for it), the entry is marked active immediately; otherwise it
// starts inactive until the owner transitions to Operational.
func (r *Registry[T]) Register(owner string, callback func(sample.Sample[T])) *Entry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := &Entry[T]{
		Owner:    owner,
		Callback: callback,
	}
	e.active.Store(r.activeModules[owner])
	r.entries = append(r.entries, e)
	return e
}

// StartForModule marks owner as a live consumer and activates every entry
// already registered for it.
func (r *Registry[T]) StartForModule(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.activeModules[owner] = true
	for _, e := range r.entries {
		if e.Owner == owner {
			e.active.Store(true)
		}
	}
}

// StopForModule is the inverse of StartForModule: it deactivates every
// entry owned by owner and removes owner from the active-consumer set.
func (r *Registry[T]) StopForModule(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.activeModules, owner)
	for _, e := range r.entries {
		if e.Owner == owner {
			e.active.Store(false)
		}
	}
}

// Publish invokes every currently-active handler, in registration order,
// with the given sample. The entry list to iterate is snapshotted under
// the lock before any callback runs, so a callback that triggers a
// concurrent Register does not see a torn or re-ordered list mid-fan-out
// (spec.md §9's "handler lists mutated during iteration" note); the new
// entry may or may not be seen on this publish per spec.md §5, but never
// causes a partial view of the entries captured at snapshot time.
func (r *Registry[T]) Publish(s sample.Sample[T]) {
	r.mu.RLock()
	snapshot := make([]*Entry[T], len(r.entries))
	copy(snapshot, r.entries)
	r.mu.RUnlock()

	for _, e := range snapshot {
		if e.active.Load() {
			e.Callback(s)
		}
	}
}

// Len returns the number of registered entries, for diagnostics/tests.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
