package executor

import (
	"context"
	"testing"
	"time"
)

func TestRegisterOrdersSameModuleRunAfter(t *testing.T) {
	e := New(10 * time.Millisecond)

	var order []string
	e.Register("m", "task2", func() { order = append(order, "task2") }, RegisterOpts{
		PeriodTicks:       1,
		RunAfterRunnables: []string{"task1"},
	})
	e.Register("m", "task1", func() { order = append(order, "task1") }, RegisterOpts{
		PeriodTicks: 1,
	})

	e.StartModule("m")
	names := []string{}
	for _, r := range e.snapshot() {
		names = append(names, r.Name)
	}
	if len(names) != 2 || names[0] != "task1" || names[1] != "task2" {
		t.Fatalf("expected [task1 task2] regardless of registration order, got %v", names)
	}
}

func TestRegisterOrdersCrossModuleRunAfter(t *testing.T) {
	e := New(10 * time.Millisecond)

	e.Register("consumer", "read", func() {}, RegisterOpts{
		PeriodTicks:     1,
		RunAfterModules: []string{"producer"},
	})
	e.Register("producer", "write", func() {}, RegisterOpts{
		PeriodTicks: 1,
	})

	owners := []string{}
	for _, r := range e.snapshot() {
		owners = append(owners, r.Owner)
	}
	if len(owners) != 2 || owners[0] != "producer" || owners[1] != "consumer" {
		t.Fatalf("expected [producer consumer], got %v", owners)
	}
}

func TestRegisterPanicsOnCycle(t *testing.T) {
	e := New(10 * time.Millisecond)
	e.Register("m", "a", func() {}, RegisterOpts{PeriodTicks: 1, RunAfterRunnables: []string{"b"}})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic registering a cyclic ordering constraint")
		}
	}()
	e.Register("m", "b", func() {}, RegisterOpts{PeriodTicks: 1, RunAfterRunnables: []string{"a"}})
}

func TestTickLoopRespectsPeriodAndOffset(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := New(10*time.Millisecond, WithClock(clock))

	var fastCount, slowCount int
	e.Register("m", "fast", func() { fastCount++ }, RegisterOpts{PeriodTicks: 1})
	e.Register("m", "slow", func() { slowCount++ }, RegisterOpts{PeriodTicks: 2, OffsetTicks: 1})
	e.StartModule("m")

	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)

	for i := 0; i < 4; i++ {
		clock.Advance(10 * time.Millisecond)
	}
	e.Stop()
	clock.Advance(10 * time.Millisecond) // unstick any pending fake-clock Sleep
	cancel()
	<-e.Done()

	if fastCount < 4 {
		t.Fatalf("expected fast runnable to fire every tick, got %d", fastCount)
	}
	if slowCount < 1 || slowCount >= fastCount {
		t.Fatalf("expected slow runnable to fire less often than fast, got fast=%d slow=%d", fastCount, slowCount)
	}
}

func TestInactiveRunnableNeverFires(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := New(10*time.Millisecond, WithClock(clock))

	var count int
	r := e.Register("m", "task", func() { count++ }, RegisterOpts{PeriodTicks: 1})
	_ = r // never started

	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)

	for i := 0; i < 3; i++ {
		clock.Advance(10 * time.Millisecond)
	}
	e.Stop()
	clock.Advance(10 * time.Millisecond) // unstick any pending fake-clock Sleep
	cancel()
	<-e.Done()

	if count != 0 {
		t.Fatalf("expected inactive runnable to never fire, got %d", count)
	}
}

func TestBudgetOverrunDoesNotAbort(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	e := New(10*time.Millisecond, WithClock(clock))

	var invocations int
	e.Register("m", "slowpoke", func() {
		invocations++
		clock.Advance(5 * time.Millisecond) // simulate a runnable that overruns its budget
	}, RegisterOpts{PeriodTicks: 1, Budget: time.Millisecond})
	e.StartModule("m")

	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)

	clock.Advance(10 * time.Millisecond)
	clock.Advance(10 * time.Millisecond)
	e.Stop()
	clock.Advance(10 * time.Millisecond)
	cancel()
	<-e.Done()

	if invocations == 0 {
		t.Fatalf("expected the overrunning runnable to still be invoked")
	}
}
