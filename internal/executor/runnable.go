package executor

import "sync/atomic"

// Runnable is a periodic function bound to a module, invoked by the
// Executor on its own tick thread. The zero value is not usable; build
// one through Executor.Register.
type Runnable struct {
	Name     string
	Owner    string
	fn       func()

	periodTicks uint64
	offsetTicks uint64
	budgetNs    int64

	runAfterModules   map[string]bool
	runAfterRunnables map[string]bool // same-owner runnable names

	active atomic.Bool
}

// Start marks the runnable active; the executor begins firing it on its
// next due tick.
func (r *Runnable) Start() { r.active.Store(true) }

// Stop marks the runnable inactive. It stays in the executor's ordered
// list — only Active() gates execution.
func (r *Runnable) Stop() { r.active.Store(false) }

// Active reports whether the executor currently fires this runnable.
func (r *Runnable) Active() bool { return r.active.Load() }

// dependsOn reports whether r must run after other per the ordering
// invariant: same owner and other named in RunAfterRunnables, or other's
// owner named in RunAfterModules.
func (r *Runnable) dependsOn(other *Runnable) bool {
	if r.runAfterModules[other.Owner] {
		return true
	}
	if r.Owner == other.Owner && r.runAfterRunnables[other.Name] {
		return true
	}
	return false
}
