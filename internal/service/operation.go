package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/oriys/vaf/internal/metrics"
	"github.com/oriys/vaf/internal/result"
)

// Operation is a single request/response operation of a Service Module.
// At most one handler may be registered at a time (spec.md §4.F); a
// provider calls RegisterHandler once during Start, consumers call Call
// to invoke it and receive a Future.
type Operation[Args any, Ret any] struct {
	iface, name string
	mtx         *metrics.Metrics

	mu      sync.Mutex
	handler func(Args) result.Result[Ret]

	wireClient   wireOperationClient
	wireInstance string
	wireCodec    WireOperationCodec[Args, Ret]
}

// NewOperation creates an operation named "<iface>.<name>" with no
// handler registered; Call returns NoOperationHandlerRegistered until one
// is.
func NewOperation[Args any, Ret any](iface, name string, mtx *metrics.Metrics) *Operation[Args, Ret] {
	return &Operation[Args, Ret]{iface: iface, name: name, mtx: mtx}
}

// RegisterHandler installs fn as the operation's handler, replacing any
// previously registered one.
func (o *Operation[Args, Ret]) RegisterHandler(fn func(Args) result.Result[Ret]) {
	o.mu.Lock()
	o.handler = fn
	o.mu.Unlock()
}

// Unregister removes the current handler, if any.
func (o *Operation[Args, Ret]) Unregister() {
	o.mu.Lock()
	o.handler = nil
	o.mu.Unlock()
}

// Call invokes the registered handler synchronously and returns a Future
// already resolved with its Result. If no local handler is registered but
// BindWireClient was called, the call is dispatched to the remote
// provider on a separate goroutine and Call returns at once; the Future
// resolves when the remote reply (or a transport error) arrives. If
// neither is available the Future resolves with a
// NoOperationHandlerRegistered error, matching spec.md §4.F.
func (o *Operation[Args, Ret]) Call(args Args) result.Future[Ret] {
	start := time.Now()
	future, promise := result.NewFuture[Ret]()

	o.mu.Lock()
	fn := o.handler
	o.mu.Unlock()

	if fn == nil {
		if o.wireClient != nil {
			go func() {
				res, _ := o.callWire(args)
				promise.SetResult(res)
				o.mtx.RecordOperationCall(o.iface, o.name, time.Since(start), res.HasValue())
			}()
			return future
		}
		promise.SetResult(result.Err[Ret](result.New(result.NoOperationHandlerRegistered,
			fmt.Sprintf("%s.%s: no operation handler registered", o.iface, o.name))))
		o.mtx.RecordOperationCall(o.iface, o.name, time.Since(start), false)
		return future
	}

	res := fn(args)
	promise.SetResult(res)
	o.mtx.RecordOperationCall(o.iface, o.name, time.Since(start), res.HasValue())
	return future
}
