package rpcbridge

import (
	"context"

	"github.com/oriys/vaf/internal/service"
)

// ServiceAdapter adapts Client to the method shape internal/service's
// Operation.BindWireClient expects, keeping internal/service itself free
// of any grpc import.
type ServiceAdapter struct {
	*Client
}

// Call implements the wire client contract Operation.callWire dispatches
// through.
func (a ServiceAdapter) Call(ctx context.Context, iface, operation, instance string, payload []byte) (service.WireCallResult, error) {
	env, err := a.Client.Call(ctx, iface, operation, instance, payload)
	if err != nil {
		return service.WireCallResult{}, err
	}
	return service.WireCallResult{
		OK:        env.OK,
		Payload:   env.Payload,
		ErrorKind: env.ErrorKind,
		ErrorMsg:  env.ErrorMsg,
	}, nil
}
