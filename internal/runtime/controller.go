// Package runtime implements the Executable Controller: the owner of the
// Executor, the ordered module list, the signal handler, and the
// UserController lifecycle hooks.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oriys/vaf/internal/executor"
	"github.com/oriys/vaf/internal/logging"
	"github.com/oriys/vaf/internal/metrics"
	"github.com/oriys/vaf/internal/module"
	"github.com/oriys/vaf/internal/result"
	"github.com/oriys/vaf/internal/usercontroller"
)

// Controller is the Executable Controller: it owns the Executor, the
// registration-ordered module list, and drives every module through its
// lifecycle state machine from a single control goroutine.
//
// # Concurrency
//
// Run must be called from exactly one goroutine (the "control thread" in
// spec.md's terms). The Executor runs its tick loop on a separate
// goroutine Controller starts internally. A third goroutine watches for
// SIGTERM/SIGINT and only ever touches an atomic flag — see
// DESIGN.md's "Open Question: signal handling" entry for why this
// doesn't need raw signal masking.
type Controller struct {
	exec   *executor.Executor
	user   usercontroller.UserController
	log    *slog.Logger
	mtx    *metrics.Metrics
	pollEvery time.Duration

	mu         sync.Mutex
	containers []*container
	byName     map[string]*container

	shutdownRequested atomic.Bool
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithUserController overrides the default abort-on-critical policy.
func WithUserController(u usercontroller.UserController) Option {
	return func(c *Controller) { c.user = u }
}

// WithLogger overrides the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMetrics attaches a metrics sink; nil is a valid no-op sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.mtx = m }
}

// WithPollInterval overrides the 100ms default control-thread poll
// interval, mostly for tests.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.pollEvery = d }
}

// New creates a Controller driving the given Executor.
func New(exec *executor.Executor, opts ...Option) *Controller {
	c := &Controller{
		exec:      exec,
		user:      usercontroller.NewDefault(),
		log:       logging.Op(),
		pollEvery: 100 * time.Millisecond,
		byName:    make(map[string]*container),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterModule appends ctrl to the module list, preserving registration
// order for init/shutdown ordering.
func (c *Controller) RegisterModule(ctrl module.Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cont := &container{
		name:         ctrl.Name(),
		controller:   ctrl,
		dependencies: ctrl.Dependencies(),
		state:        NotInitialized,
	}
	c.containers = append(c.containers, cont)
	c.byName[cont.name] = cont
}

// ReportOperational implements module.Reporter.
func (c *Controller) ReportOperational(name string) {
	c.ChangeStateOfModule(name, Operational)
}

// ReportError implements module.Reporter. The error is first passed to
// the UserController; a critical error then transitions the reporting
// module back to NotOperational; finally the error is propagated to
// every dependent module's OnError.
func (c *Controller) ReportError(name string, err result.Error, critical bool) {
	c.user.OnError(err, name, critical)
	if critical {
		c.ChangeStateOfModule(name, NotOperational)
	}

	c.mu.Lock()
	dependents := make([]*container, 0)
	for _, cont := range c.containers {
		for _, dep := range cont.dependencies {
			if dep == name {
				dependents = append(dependents, cont)
				break
			}
		}
	}
	c.mu.Unlock()

	for _, dep := range dependents {
		dep.controller.OnError(err)
	}
}

// Run blocks until shutdown is requested (via Stop or SIGTERM/SIGINT),
// driving every UserController hook and module transition in the order
// spec.md §4.G describes.
func (c *Controller) Run(ctx context.Context) error {
	c.user.PreInitialize()
	if err := c.doInitialize(ctx); err != nil {
		return err
	}
	c.user.PostInitialize()

	c.user.PreStart()
	c.doStart()
	c.user.PostStart()

	stopSignals := c.watchSignals()
	defer signal.Stop(stopSignals)

	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-stopSignals:
			c.shutdownRequested.Store(true)
		case <-ticker.C:
		}
		if c.shutdownRequested.Load() {
			break loop
		}
		c.startModules()
		c.checkStartingModules()
	}

	c.user.PreShutdown()
	c.doShutdown()
	c.user.PostShutdown()
	return nil
}

// Stop requests Run to begin the shutdown sequence on its next poll.
func (c *Controller) Stop() {
	c.shutdownRequested.Store(true)
}

func (c *Controller) watchSignals() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
	return ch
}

func (c *Controller) doInitialize(ctx context.Context) error {
	go c.exec.Run(ctx)

	c.mu.Lock()
	ordered := append([]*container(nil), c.containers...)
	c.mu.Unlock()

	for _, cont := range ordered {
		c.changeState(cont, NotOperational)
	}
	return nil
}

func (c *Controller) doStart() {
	c.mu.Lock()
	ordered := append([]*container(nil), c.containers...)
	c.mu.Unlock()

	for _, cont := range ordered {
		if len(cont.dependencies) == 0 {
			c.changeState(cont, Starting)
		}
	}
}

func (c *Controller) doShutdown() {
	c.mu.Lock()
	ordered := append([]*container(nil), c.containers...)
	c.mu.Unlock()

	for i := len(ordered) - 1; i >= 0; i-- {
		c.changeState(ordered[i], NotOperational)
	}
	for i := len(ordered) - 1; i >= 0; i-- {
		c.changeState(ordered[i], Shutdown)
	}
	c.exec.Stop()
	<-c.exec.Done()
}

func (c *Controller) startModules() {
	c.mu.Lock()
	candidates := make([]*container, 0)
	for _, cont := range c.containers {
		if cont.state != NotOperational {
			continue
		}
		if c.dependenciesOperationalLocked(cont) {
			candidates = append(candidates, cont)
		}
	}
	c.mu.Unlock()

	for _, cont := range candidates {
		c.changeState(cont, Starting)
	}
}

func (c *Controller) dependenciesOperationalLocked(cont *container) bool {
	for _, dep := range cont.dependencies {
		d, ok := c.byName[dep]
		if !ok || d.state != Operational {
			return false
		}
	}
	return true
}

func (c *Controller) checkStartingModules() {
	c.mu.Lock()
	expired := make([]*container, 0)
	for _, cont := range c.containers {
		if cont.state != Starting {
			continue
		}
		cont.startingCounter++
		if cont.startingCounter > startingDeadlineTicks {
			expired = append(expired, cont)
		}
	}
	c.mu.Unlock()

	for _, cont := range expired {
		c.log.Warn("module exceeded starting deadline", "module", cont.name)
		c.changeState(cont, NotOperational)
	}
}

// StateOf returns a registered module's current lifecycle state.
func (c *Controller) StateOf(name string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cont, ok := c.byName[name]
	if !ok {
		return 0, false
	}
	return cont.state, true
}

// ChangeStateOfModule looks up name and applies the transition; it
// panics if name is unknown or the transition is illegal, matching
// spec.md's "programmer error, abort the process" requirement.
func (c *Controller) ChangeStateOfModule(name string, to State) {
	c.mu.Lock()
	cont, ok := c.byName[name]
	c.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("runtime: unknown module %q", name))
	}
	c.changeState(cont, to)
}

func (c *Controller) changeState(cont *container, to State) {
	c.mu.Lock()
	from := cont.state
	if from == to {
		// Idempotent: DoShutdown's two reverse passes call every module
		// unconditionally, and a module may already be in the target
		// state (e.g. it never left NotOperational). No action to repeat.
		c.mu.Unlock()
		return
	}
	if !legalTransition(from, to) {
		c.mu.Unlock()
		panic(fmt.Sprintf("runtime: illegal transition %s: %s -> %s", cont.name, from, to))
	}
	cont.state = to
	c.mu.Unlock()

	c.mtx.SetModuleState(cont.name, int(to))

	switch to {
	case NotOperational:
		if from == NotInitialized {
			if err := cont.controller.Init(); err != nil {
				c.log.Error("module init failed", "module", cont.name, "error", err)
			}
			return
		}
		c.mu.Lock()
		deps := append([]string(nil), cont.dependencies...)
		c.mu.Unlock()
		for _, dep := range deps {
			c.mu.Lock()
			depCont, ok := c.byName[dep]
			c.mu.Unlock()
			if ok {
				depCont.controller.StopEventHandlersForModule(cont.name)
			}
		}
		cont.controller.StopExecutor()
		cont.controller.Stop()
	case Starting:
		c.mu.Lock()
		cont.startingCounter = 0
		c.mu.Unlock()
		cont.controller.Start()
		cont.controller.StartExecutor()
	case Operational:
		c.mu.Lock()
		deps := append([]string(nil), cont.dependencies...)
		c.mu.Unlock()
		for _, dep := range deps {
			c.mu.Lock()
			depCont, ok := c.byName[dep]
			c.mu.Unlock()
			if ok {
				depCont.controller.StartEventHandlersForModule(cont.name)
			}
		}
	case Shutdown:
		cont.controller.DeInit()
	case NotInitialized:
		panic(fmt.Sprintf("runtime: illegal transition to NotInitialized for %s", cont.name))
	}
}

func legalTransition(from, to State) bool {
	switch {
	case from == NotInitialized && to == NotOperational:
		return true
	case from == NotOperational && to == Starting:
		return true
	case from == Starting && to == Operational:
		return true
	case from == Starting && to == NotOperational:
		return true
	case from == Operational && to == NotOperational:
		return true
	case from == NotOperational && to == Shutdown:
		return true
	default:
		return false
	}
}
