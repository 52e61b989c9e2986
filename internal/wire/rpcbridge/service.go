package rpcbridge

import (
	"context"

	"google.golang.org/grpc"
)

const fullServiceName = "vaf.wire.WireOperations"
const callMethod = "/" + fullServiceName + "/Call"

// wireOperationsServer is the hand-written analogue of a generated gRPC
// server interface: one bidirectional unary method, Call, carrying a
// rawMessage-wrapped OperationEnvelope each way.
type wireOperationsServer interface {
	Call(ctx context.Context, in *rawMessage) (*rawMessage, error)
}

func callHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(rawMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(wireOperationsServer).Call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: callMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(wireOperationsServer).Call(ctx, req.(*rawMessage))
	}
	return interceptor(ctx, in, info, handler)
}

// serviceDesc is the hand-built equivalent of what protoc-gen-go-grpc
// would emit for a single-method "WireOperations" service.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: fullServiceName,
	HandlerType: (*wireOperationsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: callHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/wire/rpcbridge",
}
