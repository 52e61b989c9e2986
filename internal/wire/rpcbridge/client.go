package rpcbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/oriys/vaf/internal/circuitbreaker"
	"github.com/oriys/vaf/internal/metrics"
	"github.com/oriys/vaf/internal/observability"
)

// Client is the consumer side of the External bridge adapter's operation
// half: it calls a remote WireOperations service and, per endpoint, trips
// a circuit breaker after repeated failures rather than retrying a dead
// remote indefinitely.
type Client struct {
	cc       *grpc.ClientConn
	breakers *circuitbreaker.Registry
	mtx      *metrics.Metrics
	cbConfig circuitbreaker.Config
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithBreakerConfig overrides the default per-endpoint circuit breaker
// configuration. A zero Config disables circuit breaking entirely.
func WithBreakerConfig(cfg circuitbreaker.Config) ClientOption {
	return func(c *Client) { c.cbConfig = cfg }
}

// WithMetrics attaches a metrics sink; nil is a valid no-op sink.
func WithMetrics(mtx *metrics.Metrics) ClientOption {
	return func(c *Client) { c.mtx = mtx }
}

// Dial connects to a WireOperations server at addr.
func Dial(addr string, opts ...ClientOption) (*Client, error) {
	cc, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("rpcbridge: dial %s: %w", addr, err)
	}
	c := &Client{
		cc:       cc,
		breakers: circuitbreaker.NewRegistry(),
		cbConfig: circuitbreaker.Config{
			ErrorPct:       50,
			WindowDuration: 10 * time.Second,
			OpenDuration:   5 * time.Second,
			HalfOpenProbes: 1,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Call invokes operation on iface/instance with payload as the already-encoded
// argument payload, returning the response envelope. It returns an error
// without contacting the remote if the endpoint's circuit breaker is open.
func (c *Client) Call(ctx context.Context, iface, operation, instance string, payload []byte) (OperationEnvelope, error) {
	ctx, span := observability.StartSpan(ctx, "vaf.operation.call",
		attribute.String("vaf.interface", iface),
		attribute.String("vaf.operation", operation),
		attribute.String("vaf.instance", instance),
	)
	defer span.End()

	endpoint := endpointKey(iface, operation)
	breaker := c.breakers.Get(endpoint, c.cbConfig)
	if breaker != nil && !breaker.Allow() {
		err := fmt.Errorf("rpcbridge: circuit open for %s", endpoint)
		observability.SetSpanError(span, err)
		return OperationEnvelope{}, err
	}

	req := OperationEnvelope{
		RequestID: uuid.NewString()[:8],
		Interface: iface,
		Operation: operation,
		Instance:  instance,
		Payload:   payload,
	}
	in := &rawMessage{data: req.Marshal()}
	out := new(rawMessage)

	start := time.Now()
	err := c.cc.Invoke(ctx, callMethod, in, out)
	if err != nil {
		if breaker != nil {
			breaker.RecordFailure()
		}
		c.mtx.RecordOperationCall(iface, operation, time.Since(start), false)
		observability.SetSpanError(span, err)
		return OperationEnvelope{}, err
	}

	resp, err := UnmarshalOperationEnvelope(out.data)
	if err != nil {
		if breaker != nil {
			breaker.RecordFailure()
		}
		observability.SetSpanError(span, err)
		return OperationEnvelope{}, err
	}
	if breaker != nil {
		if resp.OK {
			breaker.RecordSuccess()
		} else {
			breaker.RecordFailure()
		}
	}
	c.mtx.RecordOperationCall(iface, operation, time.Since(start), resp.OK)
	if resp.OK {
		observability.SetSpanOK(span)
	} else {
		observability.SetSpanError(span, fmt.Errorf("rpcbridge: remote error: %s", resp.ErrorMsg))
	}
	return resp, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.cc.Close()
}
