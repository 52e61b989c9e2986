// Package pubsubbridge implements the data-element half of the External
// bridge adapter: publishing sample envelopes to Redis Pub/Sub and
// forwarding inbound messages back into a Service Module's local sample
// slot, per spec.md §6.
package pubsubbridge

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/oriys/vaf/internal/logging"
)

// Bridge wraps a Redis client for data-element pub/sub.
type Bridge struct {
	client *redis.Client
}

// New dials a Redis server at addr.
func New(addr string) *Bridge {
	return &Bridge{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewFromClient wraps an already-configured client, e.g. for tests
// against miniredis or a shared connection pool.
func NewFromClient(c *redis.Client) *Bridge {
	return &Bridge{client: c}
}

// topic builds the "<InterfaceName>_<ElementOrOperationName>" channel
// name with the mandatory "Instance=<label>" convention from spec.md §6.
func topic(iface, element, instance string) string {
	return fmt.Sprintf("%s_%s:Instance=%s", iface, element, instance)
}

// Publish serializes payload onto the element's topic.
func (b *Bridge) Publish(ctx context.Context, iface, element, instance string, payload []byte) error {
	return b.client.Publish(ctx, topic(iface, element, instance), payload).Err()
}

// Subscribe starts a background goroutine delivering every message
// received on the element's topic to onMessage, until the returned
// unsubscribe function is called or ctx is cancelled.
func (b *Bridge) Subscribe(ctx context.Context, iface, element, instance string, onMessage func([]byte)) func() {
	sub := b.client.Subscribe(ctx, topic(iface, element, instance))
	ch := sub.Channel()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				onMessage([]byte(msg.Payload))
			}
		}
	}()

	var unsubscribed bool
	return func() {
		if unsubscribed {
			return
		}
		unsubscribed = true
		if err := sub.Close(); err != nil {
			logging.Op().Warn("pubsubbridge: error closing subscription", "error", err)
		}
		<-done
	}
}

// Close releases the underlying Redis client.
func (b *Bridge) Close() error {
	return b.client.Close()
}
