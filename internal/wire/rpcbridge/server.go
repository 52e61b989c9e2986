package rpcbridge

import (
	"context"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"

	"github.com/oriys/vaf/internal/logging"
	"github.com/oriys/vaf/internal/metrics"
)

// OperationHandler resolves one operation call into a response envelope.
// Registered per "<Interface>.<Operation>" by a wire-backed provider
// Service Module.
type OperationHandler func(ctx context.Context, req OperationEnvelope) OperationEnvelope

// Server exposes locally-registered operation handlers over the
// WireOperations gRPC service, the provider side of the External bridge
// adapter (spec.md §6).
type Server struct {
	mu       sync.RWMutex
	handlers map[string]OperationHandler
	mtx      *metrics.Metrics

	grpcServer *grpc.Server
}

// NewServer creates a Server with no handlers registered; mtx may be nil.
func NewServer(mtx *metrics.Metrics) *Server {
	return &Server{handlers: make(map[string]OperationHandler), mtx: mtx}
}

func endpointKey(iface, operation string) string {
	return iface + "." + operation
}

// RegisterOperation installs fn as the handler for "<iface>.<operation>",
// replacing any previously registered handler.
func (s *Server) RegisterOperation(iface, operation string, fn OperationHandler) {
	s.mu.Lock()
	s.handlers[endpointKey(iface, operation)] = fn
	s.mu.Unlock()
}

// Call implements wireOperationsServer by dispatching to the registered
// handler, or responding with a not-found envelope if none is registered.
func (s *Server) Call(ctx context.Context, in *rawMessage) (*rawMessage, error) {
	req, err := UnmarshalOperationEnvelope(in.data)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	fn, ok := s.handlers[endpointKey(req.Interface, req.Operation)]
	s.mu.RUnlock()

	var resp OperationEnvelope
	if !ok {
		resp = OperationEnvelope{
			RequestID: req.RequestID,
			Interface: req.Interface,
			Operation: req.Operation,
			Instance:  req.Instance,
			ErrorKind: 1,
			ErrorMsg:  fmt.Sprintf("no operation handler registered for %s.%s", req.Interface, req.Operation),
		}
	} else {
		resp = fn(ctx, req)
	}
	s.mtx.RecordOperationCall(req.Interface, req.Operation, 0, resp.OK)
	return &rawMessage{data: resp.Marshal()}, nil
}

// Serve starts the gRPC server on addr and blocks until it stops or the
// listener fails.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpcbridge: listen %s: %w", addr, err)
	}
	s.grpcServer = grpc.NewServer()
	s.grpcServer.RegisterService(&serviceDesc, s)
	logging.Op().Info("wire operation server listening", "addr", addr)
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the underlying gRPC server, if Serve was called.
func (s *Server) Stop() {
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}
