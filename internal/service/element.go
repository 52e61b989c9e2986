package service

import (
	"fmt"

	"github.com/oriys/vaf/internal/handler"
	"github.com/oriys/vaf/internal/metrics"
	"github.com/oriys/vaf/internal/result"
	"github.com/oriys/vaf/internal/sample"
)

// Element is a single data element of a Service Module: a current-sample
// cell plus the gated handler list its consumers register against.
// Provider modules call SetAllocated/Set; consumers call
// RegisterHandler, or poll GetAllocated/Get for the current value.
type Element[T any] struct {
	iface, name string
	cell        sample.Cell[T]
	handlers    *handler.Registry[T]
	mtx         *metrics.Metrics

	wireBridge   wireElementBridge
	wireInstance string
	wireCodec    WireCodec[T]
}

// NewElement creates a data element named "<iface>.<name>" (used in
// metrics and error messages) and registers its handler registry with
// owner so the Executable Controller's per-consumer gating reaches it.
func NewElement[T any](owner *Module, iface, name string, mtx *metrics.Metrics) *Element[T] {
	e := &Element[T]{iface: iface, name: name, handlers: handler.New[T](), mtx: mtx}
	owner.track(e.handlers)
	return e
}

// Allocate returns a fresh zero-valued T for a provider to fill in before
// calling SetAllocated, mirroring the original's allocate-then-publish
// idiom without the allocator template parameter.
func (e *Element[T]) Allocate() *T {
	var v T
	return &v
}

// SetAllocated publishes v as the element's new current sample, fans it
// out to every active consumer handler, and, if BindWire was called,
// forwards it to the wire bridge for out-of-process consumers.
func (e *Element[T]) SetAllocated(v *T) {
	s := e.cell.Publish(v)
	e.handlers.Publish(s)
	e.mtx.RecordPublish(e.iface, e.name)
	e.publishWire(*v)
}

// Set is the convenience form of SetAllocated for callers that do not
// need to reuse an Allocate'd pointer.
func (e *Element[T]) Set(v T) {
	e.SetAllocated(&v)
}

// GetAllocated returns the current sample, or a NoSampleAvailable error
// if nothing has been published yet.
func (e *Element[T]) GetAllocated() result.Result[T] {
	v, ok := e.cell.Load().Get()
	if !ok {
		return result.Err[T](result.New(result.NoSampleAvailable, fmt.Sprintf("%s.%s: no sample published", e.iface, e.name)))
	}
	return result.Ok(v)
}

// Get returns the current sample's value, or T's zero value if none has
// been published, matching spec.md §4.F's Get_* convenience shape.
func (e *Element[T]) Get() T {
	v, _ := e.cell.Load().Get()
	return v
}

// RegisterHandler registers callback as owner's handler for this
// element. It starts active iff owner is already a live consumer.
func (e *Element[T]) RegisterHandler(owner string, callback func(sample.Sample[T])) {
	e.handlers.Register(owner, callback)
}
