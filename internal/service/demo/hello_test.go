package demo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/oriys/vaf/internal/executor"
	"github.com/oriys/vaf/internal/runtime"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// TestHelloVafScenario implements spec.md's S1: a provider publishing a
// greeting embedding a consumer-controlled message id every 500ms, and a
// consumer calling SetMsgId every 1000ms starting at 0.
func TestHelloVafScenario(t *testing.T) {
	exec := executor.New(10 * time.Millisecond)
	rc := runtime.New(exec, runtime.WithPollInterval(5*time.Millisecond))

	provider := NewProvider(exec, rc, nil, 50)  // 500ms
	consumer := NewConsumer(exec, rc, provider.Hello, 100) // 1000ms
	rc.RegisterModule(provider)
	rc.RegisterModule(consumer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rc.Run(ctx)
		close(done)
	}()

	waitFor(t, 5*time.Second, func() bool {
		return len(consumer.Calls()) >= 3
	})
	// Let the provider's next tick (using id=2) land before asserting.
	time.Sleep(600 * time.Millisecond)

	calls := consumer.Calls()
	if len(calls) < 3 || calls[0] != 0 || calls[1] != 1 || calls[2] != 2 {
		t.Fatalf("got calls %v, want a [0,1,2,...] prefix", calls)
	}

	if provider.Published() < 6 {
		t.Fatalf("got %d published messages, want at least 6", provider.Published())
	}

	received := consumer.Received()
	if len(received) == 0 {
		t.Fatalf("expected consumer to have received at least one message")
	}
	last := received[len(received)-1]
	if !strings.HasSuffix(last, "MsgID: 2") {
		t.Fatalf("got last received message %q, want suffix \"MsgID: 2\"", last)
	}

	rc.Stop()
	cancel()
	<-done
}
