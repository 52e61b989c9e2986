// Package executor runs the single tick thread that drives every
// registered periodic runnable in a fixed order, honoring per-runnable
// period, offset, budget, and cross-module ordering constraints.
//
// # Concurrency
//
// The Executor is strictly single-threaded cooperative: one goroutine
// runs Run and invokes every due runnable synchronously, in list order.
// A runnable that blocks delays every later runnable in the same tick.
// Register must complete before Run starts; once ticking, the ordered
// list itself is immutable and only a runnable's Active flag changes,
// which is safe for concurrent use from the control goroutine.
//
// # Ordering
//
// Register inserts a new runnable at the earliest position that keeps
// every runnable it depends on (via RunAfterModule/RunAfterRunnable)
// earlier in the list, and every runnable that depends on it later.
// Ties are broken by insertion order.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oriys/vaf/internal/logging"
	"github.com/oriys/vaf/internal/metrics"
)

// RegisterOpts configures a new Runnable at registration time.
type RegisterOpts struct {
	PeriodTicks       uint64
	OffsetTicks       uint64
	Budget            time.Duration
	RunAfterModules   []string
	RunAfterRunnables []string
}

// Executor owns the ordered runnable list and the tick loop.
type Executor struct {
	period time.Duration
	clock  Clock
	log    *slog.Logger
	mtx    *metrics.Metrics
	ticks  *logging.TickLog

	mu        sync.Mutex
	runnables []*Runnable

	stopCh  chan struct{}
	stopped chan struct{}
	counter atomic.Uint64
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(c Clock) Option {
	return func(e *Executor) { e.clock = c }
}

// WithLogger overrides the operational logger used for tick-overrun and
// budget-exceeded warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithMetrics attaches a metrics sink; nil is a valid no-op sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.mtx = m }
}

// WithTickLog attaches a ring buffer of recent TickEvents for diagnostics.
func WithTickLog(t *logging.TickLog) Option {
	return func(e *Executor) { e.ticks = t }
}

// New creates an Executor with the given tick period.
func New(period time.Duration, opts ...Option) *Executor {
	e := &Executor{
		period:  period,
		clock:   realClock{},
		log:     logging.Op(),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register builds a Runnable from opts and inserts it into the ordered
// list at the earliest legal position. It panics if opts describes a
// cycle or otherwise unsatisfiable ordering constraint against runnables
// already registered — this is a programmer error caught at startup.
func (e *Executor) Register(owner, name string, fn func(), opts RegisterOpts) *Runnable {
	if opts.PeriodTicks == 0 {
		panic(fmt.Sprintf("executor: runnable %s.%s has period_ticks == 0", owner, name))
	}
	if opts.OffsetTicks >= opts.PeriodTicks {
		panic(fmt.Sprintf("executor: runnable %s.%s has offset_ticks >= period_ticks", owner, name))
	}

	r := &Runnable{
		Name:              name,
		Owner:             owner,
		fn:                fn,
		periodTicks:       opts.PeriodTicks,
		offsetTicks:       opts.OffsetTicks,
		budgetNs:          int64(opts.Budget),
		runAfterModules:   toSet(opts.RunAfterModules),
		runAfterRunnables: toSet(opts.RunAfterRunnables),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.insertLocked(r)
	return r
}

func toSet(vals []string) map[string]bool {
	if len(vals) == 0 {
		return nil
	}
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

// insertLocked finds the earliest index preserving the ordering
// invariant and splices r in. Callers must hold e.mu.
func (e *Executor) insertLocked(r *Runnable) {
	lower := 0 // r must come at or after every runnable it depends on
	upper := len(e.runnables) // r must come at or before every runnable that depends on it

	for i, existing := range e.runnables {
		if r.dependsOn(existing) && i+1 > lower {
			lower = i + 1
		}
		if existing.dependsOn(r) && i < upper {
			upper = i
		}
	}

	if lower > upper {
		panic(fmt.Sprintf("executor: unsatisfiable ordering constraint registering %s.%s", r.Owner, r.Name))
	}

	e.runnables = append(e.runnables, nil)
	copy(e.runnables[lower+1:], e.runnables[lower:])
	e.runnables[lower] = r
}

// StartModule activates every runnable owned by owner, the effect of the
// Module Controller's StartExecutor().
func (e *Executor) StartModule(owner string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.runnables {
		if r.Owner == owner {
			r.Start()
		}
	}
}

// StopModule deactivates every runnable owned by owner, the effect of
// StopExecutor(). Runnables remain in the ordered list.
func (e *Executor) StopModule(owner string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.runnables {
		if r.Owner == owner {
			r.Stop()
		}
	}
}

func (e *Executor) snapshot() []*Runnable {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Runnable, len(e.runnables))
	copy(out, e.runnables)
	return out
}

// Run drives the tick loop until Stop is called or ctx is cancelled. It
// blocks the calling goroutine; callers typically run it in its own
// goroutine and wait on Done.
func (e *Executor) Run(ctx context.Context) {
	defer close(e.stopped)

	ordered := e.snapshot()
	next := e.clock.Now().Add(e.period)

	for {
		select {
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		counter := e.counter.Load()
		for _, r := range ordered {
			if !r.Active() {
				continue
			}
			if counter < r.offsetTicks {
				continue
			}
			if (counter-r.offsetTicks)%r.periodTicks != 0 {
				continue
			}
			e.invoke(r, counter)
		}

		now := e.clock.Now()
		if now.After(next) {
			e.log.Warn("tick overrun", "counter", counter, "late_by", now.Sub(next))
		}
		if d := next.Sub(now); d > 0 {
			e.clock.Sleep(d)
		}
		next = next.Add(e.period)
		e.counter.Add(1)
	}
}

func (e *Executor) invoke(r *Runnable, counter uint64) {
	start := e.clock.Now()
	r.fn()
	elapsed := e.clock.Now().Sub(start)

	overrun := r.budgetNs > 0 && elapsed.Nanoseconds() > r.budgetNs
	if overrun {
		e.log.Warn("runnable exceeded budget",
			"module", r.Owner, "runnable", r.Name,
			"elapsed", elapsed, "budget", time.Duration(r.budgetNs))
	}

	e.mtx.RecordTick(r.Owner, r.Name, elapsed, overrun)
	if e.ticks != nil {
		e.ticks.Record(logging.TickEvent{
			Module:       r.Owner,
			Runnable:     r.Name,
			Counter:      counter,
			Duration:     elapsed,
			BudgetExceed: overrun,
		})
	}
}

// Stop requests the tick loop to exit after completing its current tick.
// Safe to call from any goroutine; idempotent.
func (e *Executor) Stop() {
	select {
	case <-e.stopCh:
	default:
		close(e.stopCh)
	}
}

// Done returns a channel closed once Run has returned, the Go analogue
// of joining the executor thread.
func (e *Executor) Done() <-chan struct{} {
	return e.stopped
}

// Counter returns the current tick count, for diagnostics and tests.
func (e *Executor) Counter() uint64 {
	return e.counter.Load()
}
