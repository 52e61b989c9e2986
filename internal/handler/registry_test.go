package handler

import (
	"testing"

	"github.com/oriys/vaf/internal/sample"
)

func TestRegistryGatingLifecycle(t *testing.T) {
	r := New[int]()
	var received []int
	r.Register("m1", func(s sample.Sample[int]) {
		v, _ := s.Get()
		received = append(received, v)
	})

	one := 1
	r.Publish(sample.Of(&one))
	if len(received) != 0 {
		t.Fatalf("handler should not fire before owner is active, got %v", received)
	}

	r.StartForModule("m1")
	two := 2
	r.Publish(sample.Of(&two))
	if len(received) != 1 || received[0] != 2 {
		t.Fatalf("got %v, want [2]", received)
	}

	r.StopForModule("m1")
	three := 3
	r.Publish(sample.Of(&three))
	if len(received) != 1 {
		t.Fatalf("handler should not fire after owner stopped, got %v", received)
	}
}

func TestRegistryNewEntryInheritsActiveMembership(t *testing.T) {
	r := New[string]()
	r.StartForModule("consumer")

	var fired bool
	r.Register("consumer", func(sample.Sample[string]) { fired = true })

	v := "hi"
	r.Publish(sample.Of(&v))
	if !fired {
		t.Fatalf("handler registered after owner became active should fire immediately")
	}
}

func TestRegistryInvokedInRegistrationOrderExactlyOncePerPublish(t *testing.T) {
	r := New[int]()
	r.StartForModule("a")
	r.StartForModule("b")

	var order []string
	r.Register("a", func(sample.Sample[int]) { order = append(order, "a") })
	r.Register("b", func(sample.Sample[int]) { order = append(order, "b") })

	for i := 0; i < 3; i++ {
		v := i
		r.Publish(sample.Of(&v))
	}

	if len(order) != 6 {
		t.Fatalf("expected 6 invocations across 3 publishes to 2 handlers, got %d", len(order))
	}
	for i := 0; i < len(order); i += 2 {
		if order[i] != "a" || order[i+1] != "b" {
			t.Fatalf("expected registration order a,b repeating; got %v", order)
		}
	}
}

func TestRegistryMultipleOwnersIndependentGating(t *testing.T) {
	r := New[int]()
	ea := r.Register("a", func(sample.Sample[int]) {})
	r.StartForModule("b")
	eb := r.Register("b", func(sample.Sample[int]) {})

	if r.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", r.Len())
	}
	if ea.Active() {
		t.Fatalf("starting owner b must not activate owner a's entry")
	}
	if !eb.Active() {
		t.Fatalf("owner b's entry should be active after StartForModule(b)")
	}
}
