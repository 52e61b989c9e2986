package service

import (
	"context"
)

// wireElementBridge is the subset of pubsubbridge.Bridge an Element needs.
// Declared here, rather than importing pubsubbridge directly, so
// internal/service never depends on the Redis client library when a
// Service Module is purely in-process.
type wireElementBridge interface {
	Publish(ctx context.Context, iface, element, instance string, payload []byte) error
	Subscribe(ctx context.Context, iface, element, instance string, onMessage func([]byte)) func()
}

// WireCodec converts a data element's value to and from the byte payload
// carried over the wire bridge. A wire-backed Service Module supplies one
// per element, the Go analogue of the original's generated per-interface
// adapter (spec.md §6).
type WireCodec[T any] struct {
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

// BindWire attaches a wire bridge to this element: every local publish is
// also forwarded over bridge, and inbound wire messages are deserialized
// straight into the same in-process sample slot local consumers read
// from. It returns an unsubscribe function.
func (e *Element[T]) BindWire(bridge wireElementBridge, instance string, codec WireCodec[T]) func() {
	e.wireBridge = bridge
	e.wireInstance = instance
	e.wireCodec = codec

	return bridge.Subscribe(context.Background(), e.iface, e.name, instance, func(payload []byte) {
		v, err := codec.Decode(payload)
		if err != nil {
			return
		}
		s := e.cell.Publish(&v)
		e.handlers.Publish(s)
		e.mtx.RecordPublish(e.iface, e.name)
	})
}

func (e *Element[T]) publishWire(v T) {
	if e.wireBridge == nil {
		return
	}
	payload, err := e.wireCodec.Encode(v)
	if err != nil {
		return
	}
	_ = e.wireBridge.Publish(context.Background(), e.iface, e.name, e.wireInstance, payload)
}
