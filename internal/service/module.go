// Package service implements the Service Module building blocks: typed
// data elements and operations composed onto module.Base, plus the
// active-consumer gating spec.md §4.F requires. Go has no template
// instantiation to generate one method set per data element the way the
// original does; instead a concrete Service Module declares one
// *Element[T]/*Operation[Args, Ret] field per interface member and the
// Module base wires their gating into the Executable Controller's
// StartEventHandlersForModule/StopEventHandlersForModule calls.
package service

import (
	"sync"

	"github.com/oriys/vaf/internal/module"
)

// gateable is satisfied by *handler.Registry[T] for any T: Go interface
// satisfaction is structural, so a single non-generic interface covers
// every element's registry regardless of its payload type.
type gateable interface {
	StartForModule(owner string)
	StopForModule(owner string)
}

// Module is the embeddable base for a Service Module. It tracks every
// Element/Operation created against it and fans out the Executable
// Controller's per-consumer gating calls to each of their handler
// registries.
type Module struct {
	module.Base

	mu        sync.Mutex
	gateables []gateable
}

func (m *Module) track(g gateable) {
	m.mu.Lock()
	m.gateables = append(m.gateables, g)
	m.mu.Unlock()
}

// StartEventHandlersForModule activates owner's handler entries across
// every data element this Service Module exposes.
func (m *Module) StartEventHandlersForModule(owner string) {
	m.mu.Lock()
	gs := append([]gateable(nil), m.gateables...)
	m.mu.Unlock()
	for _, g := range gs {
		g.StartForModule(owner)
	}
}

// StopEventHandlersForModule is the inverse of StartEventHandlersForModule.
func (m *Module) StopEventHandlersForModule(owner string) {
	m.mu.Lock()
	gs := append([]gateable(nil), m.gateables...)
	m.mu.Unlock()
	for _, g := range gs {
		g.StopForModule(owner)
	}
}
