package service

import (
	"context"
	"time"

	"github.com/oriys/vaf/internal/result"
)

// WireCallResult is the bridge-agnostic shape of a remote operation
// response, keeping internal/service decoupled from any specific wire
// transport package (and therefore from grpc/redis imports when a
// Service Module is purely in-process).
type WireCallResult struct {
	OK        bool
	Payload   []byte
	ErrorKind int32
	ErrorMsg  string
}

// wireOperationClient is the subset of rpcbridge.Client an Operation
// needs for consumer-side remote dispatch.
type wireOperationClient interface {
	Call(ctx context.Context, iface, operation, instance string, payload []byte) (WireCallResult, error)
}

// WireOperationCodec converts an operation's Go argument/return types to
// and from the byte payload carried over the wire bridge.
type WireOperationCodec[Args any, Ret any] struct {
	EncodeArgs func(Args) ([]byte, error)
	DecodeRet  func([]byte) (Ret, error)
}

// BindWireClient arms this operation to dispatch to a remote provider
// whenever no local handler is registered.
func (o *Operation[Args, Ret]) BindWireClient(client wireOperationClient, instance string, codec WireOperationCodec[Args, Ret]) {
	o.wireClient = client
	o.wireInstance = instance
	o.wireCodec = codec
}

// callWire attempts remote dispatch, returning handled=false if no wire
// client is bound. Call checks for a bound client itself before running
// callWire on its own goroutine.
func (o *Operation[Args, Ret]) callWire(args Args) (res result.Result[Ret], handled bool) {
	if o.wireClient == nil {
		return result.Result[Ret]{}, false
	}

	payload, err := o.wireCodec.EncodeArgs(args)
	if err != nil {
		return result.Err[Ret](result.New(result.DefaultError, err.Error())), true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := o.wireClient.Call(ctx, o.iface, o.name, o.wireInstance, payload)
	if err != nil {
		return result.Err[Ret](result.New(result.ServiceLost, err.Error())), true
	}
	if !resp.OK {
		return result.Err[Ret](result.New(result.ErrorKind(resp.ErrorKind), resp.ErrorMsg)), true
	}

	v, err := o.wireCodec.DecodeRet(resp.Payload)
	if err != nil {
		return result.Err[Ret](result.New(result.DefaultError, err.Error())), true
	}
	return result.Ok(v), true
}
