package rpcbridge

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oriys/vaf/internal/service"
)

// TestOperationCallDispatchesThroughServiceAdapter exercises MODULE I's
// core claim end to end: a service.Operation with no local handler, bound
// via ServiceAdapter to a remote rpcbridge server, must behave identically
// to a local call from the consumer's point of view.
func TestOperationCallDispatchesThroughServiceAdapter(t *testing.T) {
	const bufSize = 1 << 16
	lis := bufconn.Listen(bufSize)

	srv := NewServer(nil)
	srv.RegisterOperation("Calc", "Double", func(ctx context.Context, req OperationEnvelope) OperationEnvelope {
		n := int(req.Payload[0])
		return OperationEnvelope{
			RequestID: req.RequestID,
			Interface: req.Interface,
			Operation: req.Operation,
			OK:        true,
			Payload:   []byte{byte(n * 2)},
		}
	})

	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(&serviceDesc, srv)
	go grpcServer.Serve(lis)
	defer grpcServer.Stop()

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer cc.Close()

	client := &Client{cc: cc}
	adapter := ServiceAdapter{Client: client}

	op := service.NewOperation[int, int]("Calc", "Double", nil)
	op.BindWireClient(adapter, "1", service.WireOperationCodec[int, int]{
		EncodeArgs: func(n int) ([]byte, error) { return []byte{byte(n)}, nil },
		DecodeRet:  func(b []byte) (int, error) { return int(b[0]), nil },
	})

	future := op.Call(21)
	if !future.WaitFor(2 * time.Second) {
		t.Fatalf("call did not complete in time")
	}
	res := future.GetResult()
	v, ok := res.Value()
	if !ok {
		t.Fatalf("expected a value, got error %v", res.Error())
	}
	if v != 42 {
		t.Fatalf("got %d, want 42", v)
	}
}

// TestOperationCallSurfacesRemoteErrorThroughServiceAdapter confirms an
// unregistered remote operation surfaces as an Err Result on the consumer
// side, not a hang or a panic.
func TestOperationCallSurfacesRemoteErrorThroughServiceAdapter(t *testing.T) {
	const bufSize = 1 << 16
	lis := bufconn.Listen(bufSize)

	srv := NewServer(nil)
	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(&serviceDesc, srv)
	go grpcServer.Serve(lis)
	defer grpcServer.Stop()

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer cc.Close()

	client := &Client{cc: cc}
	adapter := ServiceAdapter{Client: client}

	op := service.NewOperation[int, int]("Calc", "Missing", nil)
	op.BindWireClient(adapter, "1", service.WireOperationCodec[int, int]{
		EncodeArgs: func(n int) ([]byte, error) { return []byte{byte(n)}, nil },
		DecodeRet:  func(b []byte) (int, error) { return int(b[0]), nil },
	})

	future := op.Call(21)
	if !future.WaitFor(2 * time.Second) {
		t.Fatalf("call did not complete in time")
	}
	res := future.GetResult()
	if _, ok := res.Value(); ok {
		t.Fatalf("expected an error Result for an unregistered remote operation")
	}
}
