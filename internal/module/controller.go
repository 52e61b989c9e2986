// Package module provides the base type every runtime module embeds:
// name, dependencies, a scheduler slice, and a handle back to the
// Executable Controller for error and operational-state reporting.
package module

import (
	"github.com/oriys/vaf/internal/executor"
	"github.com/oriys/vaf/internal/result"
)

// Reporter is the subset of the Executable Controller a module needs to
// call back into. Implemented by internal/runtime.Controller; declared
// here to avoid module depending on runtime.
type Reporter interface {
	ReportOperational(name string)
	ReportError(name string, err result.Error, critical bool)
}

// Controller is the contract the Executable Controller drives every
// registered module through. Concrete modules embed Base for the
// infrastructure methods (StartExecutor, ReportOperational, ...) and
// implement the lifecycle hooks themselves.
type Controller interface {
	Name() string
	Dependencies() []string

	Init() error
	Start()
	Stop()
	DeInit()
	OnError(err result.Error)

	StartEventHandlersForModule(owner string)
	StopEventHandlersForModule(owner string)
	StartExecutor()
	StopExecutor()
}

// Base implements the infrastructure methods of Controller: scheduler
// slice toggling and reporting. Embed it in a concrete module and
// implement Init/Start/Stop/DeInit/OnError for the module's own logic;
// override StartEventHandlersForModule/StopEventHandlersForModule too if
// the module is a Service Module (see internal/service.Module).
type Base struct {
	name         string
	dependencies []string
	reporter     Reporter
	exec         *executor.Executor
}

// NewBase constructs the embeddable base. exec may be nil for modules
// that register no periodic runnables.
func NewBase(name string, dependencies []string, reporter Reporter, exec *executor.Executor) Base {
	return Base{name: name, dependencies: dependencies, reporter: reporter, exec: exec}
}

func (b *Base) Name() string           { return b.name }
func (b *Base) Dependencies() []string { return b.dependencies }

// Init/Start/Stop/DeInit default to no-ops; concrete modules with real
// lifecycle work shadow these by defining their own methods of the same
// name (Go method resolution prefers the outer type's method).
func (b *Base) Init() error  { return nil }
func (b *Base) Start()      {}
func (b *Base) Stop()       {}
func (b *Base) DeInit()     {}

// OnError reports err as critical, the spec's default policy: any module
// that does not override OnError treats every error as fatal to itself.
func (b *Base) OnError(err result.Error) {
	b.reporter.ReportError(b.name, err, true)
}

// ReportOperational notifies the Executable Controller that this module
// has finished starting. Concrete modules call this from their Start.
func (b *Base) ReportOperational() {
	b.reporter.ReportOperational(b.name)
}

// ReportError propagates an error up to the Executable Controller.
func (b *Base) ReportError(err result.Error, critical bool) {
	b.reporter.ReportError(b.name, err, critical)
}

// StartEventHandlersForModule/StopEventHandlersForModule are no-ops on
// Base; Service Modules override them to gate handler entries owned by
// the newly (in)active consumer.
func (b *Base) StartEventHandlersForModule(owner string) {}
func (b *Base) StopEventHandlersForModule(owner string)  {}

// StartExecutor/StopExecutor toggle every runnable this module has
// registered with the shared Executor.
func (b *Base) StartExecutor() {
	if b.exec != nil {
		b.exec.StartModule(b.name)
	}
}

func (b *Base) StopExecutor() {
	if b.exec != nil {
		b.exec.StopModule(b.name)
	}
}

// Register forwards to the shared Executor, scoping the runnable to this
// module's name as owner.
func (b *Base) Register(runnableName string, fn func(), opts executor.RegisterOpts) *executor.Runnable {
	return b.exec.Register(b.name, runnableName, fn, opts)
}
