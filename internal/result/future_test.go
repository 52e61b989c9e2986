package result

import (
	"testing"
	"time"
)

func TestFutureSynchronousResolution(t *testing.T) {
	fut, prom := NewFuture[int]()
	prom.SetValue(42)

	if !fut.IsReady(0) {
		t.Fatalf("expected future to be ready immediately after synchronous resolution")
	}
	got := fut.Get()
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
	if fut.Valid() {
		t.Fatalf("future should be invalid after Get consumed it")
	}
}

func TestFutureGetResultError(t *testing.T) {
	fut, prom := NewFuture[string]()
	prom.SetError(NoOperationHandlerRegistered, "no handler")

	r := fut.GetResult()
	if r.HasValue() {
		t.Fatalf("expected error result")
	}
	var verr Error
	if err, ok := r.Error().(Error); ok {
		verr = err
	} else {
		t.Fatalf("expected vaf Error, got %T", r.Error())
	}
	if verr.Kind != NoOperationHandlerRegistered {
		t.Fatalf("got kind %v, want NoOperationHandlerRegistered", verr.Kind)
	}
}

func TestFutureWaitForTimesOutWhenUnresolved(t *testing.T) {
	fut, _ := NewFuture[int]()
	if fut.WaitFor(20 * time.Millisecond) {
		t.Fatalf("expected WaitFor to time out on an unresolved promise")
	}
}

func TestFutureWaitUntilBoundedWait(t *testing.T) {
	fut, prom := NewFuture[int]()
	done := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		prom.SetValue(7)
		close(done)
	}()

	deadline := time.Now().Add(500 * time.Millisecond)
	if !fut.WaitUntil(deadline) {
		t.Fatalf("expected WaitUntil to observe resolution before the deadline")
	}
	<-done
	if fut.Get() != 7 {
		t.Fatalf("expected resolved value 7")
	}
}

func TestFutureWaitUntilPastDeadlineReturnsFalse(t *testing.T) {
	fut, _ := NewFuture[int]()
	if fut.WaitUntil(time.Now().Add(-time.Second)) {
		t.Fatalf("expected WaitUntil to return false for a deadline already in the past")
	}
}
