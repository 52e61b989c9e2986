// Package sample implements the reference-counted immutable snapshot that
// backs every data element's "current value" in a Service Module.
package sample

import (
	"sync"
	"sync/atomic"
)

// Sample is a shared, immutable snapshot of the latest value published on
// a data element. It is either Empty or holds a pointer to a value that
// will never be mutated in place — publishing always swaps in a fresh
// pointer, never edits the pointee. A reader holding a Sample retains a
// valid view regardless of later publishes.
type Sample[T any] struct {
	value *T
}

// Empty returns the zero Sample, representing "no sample published yet".
func Empty[T any]() Sample[T] {
	return Sample[T]{}
}

// Of wraps an existing pointer as a Sample.
func Of[T any](v *T) Sample[T] {
	return Sample[T]{value: v}
}

// Present reports whether a value has been published.
func (s Sample[T]) Present() bool {
	return s.value != nil
}

// Get returns the pointed-to value and whether one was present. When not
// present it returns the zero value of T, matching the Get_* convenience
// shape from spec.md §4.F (default-construct rather than abort — see
// DESIGN.md's Open Question note).
func (s Sample[T]) Get() (T, bool) {
	if s.value == nil {
		var zero T
		return zero, false
	}
	return *s.value, true
}

// Ptr returns the underlying pointer, or nil if Empty.
func (s Sample[T]) Ptr() *T {
	return s.value
}

// Cell is the per-data-element "current sample" slot held by a purely
// in-process Service Module. Publish is a single atomic pointer swap;
// Load is a cheap pointer copy. Safe for concurrent use without an
// explicit mutex because the only mutation is the atomic swap itself.
type Cell[T any] struct {
	current atomic.Pointer[T]
}

// Publish stores v as the new current sample and returns it wrapped as a
// Sample for immediate local use (e.g. handler fan-out).
func (c *Cell[T]) Publish(v *T) Sample[T] {
	c.current.Store(v)
	return Sample[T]{value: v}
}

// Load returns the current Sample, Empty if nothing has been published.
func (c *Cell[T]) Load() Sample[T] {
	return Sample[T]{value: c.current.Load()}
}

// GuardedCell is a mutex-guarded variant of Cell with the same
// Publish/Load surface. service.Element does not use it: an Element
// bound to a wire bridge stores inbound samples in the same atomic Cell
// as a purely in-process one.
type GuardedCell[T any] struct {
	mu      sync.Mutex
	current *T
}

// Publish stores v under the lock and returns it as a Sample.
func (c *GuardedCell[T]) Publish(v *T) Sample[T] {
	c.mu.Lock()
	c.current = v
	c.mu.Unlock()
	return Sample[T]{value: v}
}

// Load returns the current Sample under the lock.
func (c *GuardedCell[T]) Load() Sample[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Sample[T]{value: c.current}
}
