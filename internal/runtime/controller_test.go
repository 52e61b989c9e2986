package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/oriys/vaf/internal/executor"
	"github.com/oriys/vaf/internal/module"
	"github.com/oriys/vaf/internal/result"
)

// silentUserController records OnError calls instead of aborting the
// process, so tests can exercise critical-error propagation safely.
type silentUserController struct {
	errors []string
}

func (s *silentUserController) PreInitialize()  {}
func (s *silentUserController) PostInitialize() {}
func (s *silentUserController) PreStart()       {}
func (s *silentUserController) PostStart()      {}
func (s *silentUserController) PreShutdown()    {}
func (s *silentUserController) PostShutdown()   {}
func (s *silentUserController) OnError(err result.Error, moduleName string, critical bool) {
	s.errors = append(s.errors, moduleName)
}

// testModule is a minimal module.Controller for exercising the
// Executable Controller's lifecycle transitions. Its Start immediately
// reports operational, mirroring a module with no asynchronous startup.
type testModule struct {
	module.Base
	handledOwners []string
	stoppedOwners []string
}

func (t *testModule) Start() {
	t.ReportOperational()
}

func (t *testModule) StartEventHandlersForModule(owner string) {
	t.handledOwners = append(t.handledOwners, owner)
}

func (t *testModule) StopEventHandlersForModule(owner string) {
	t.stoppedOwners = append(t.stoppedOwners, owner)
}

func newTestModule(rc *Controller, name string, deps []string) *testModule {
	m := &testModule{}
	m.Base = module.NewBase(name, deps, rc, nil)
	return m
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestLifecycleReachesOperationalInDependencyOrder(t *testing.T) {
	exec := executor.New(5 * time.Millisecond)
	rc := New(exec, WithPollInterval(2*time.Millisecond))

	producer := newTestModule(rc, "producer", nil)
	consumer := newTestModule(rc, "consumer", []string{"producer"})
	rc.RegisterModule(producer)
	rc.RegisterModule(consumer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rc.Run(ctx)
		close(done)
	}()

	waitFor(t, time.Second, func() bool {
		ps, _ := rc.StateOf("producer")
		cs, _ := rc.StateOf("consumer")
		return ps == Operational && cs == Operational
	})

	if len(producer.handledOwners) != 1 || producer.handledOwners[0] != "consumer" {
		t.Fatalf("expected producer to be told consumer is active, got %v", producer.handledOwners)
	}

	rc.Stop()
	cancel()
	<-done
}

// TestDemotionToNotOperationalStopsEventHandlersOnDependencies covers
// Testable Property #2's off direction: when a consumer is demoted back
// to NotOperational (here via a critical error), every dependency it
// gated handlers on must be told to stop them for that consumer, mirroring
// what the Operational case does on the way up.
func TestDemotionToNotOperationalStopsEventHandlersOnDependencies(t *testing.T) {
	exec := executor.New(5 * time.Millisecond)
	rc := New(exec, WithPollInterval(2*time.Millisecond), WithUserController(&silentUserController{}))

	producer := newTestModule(rc, "producer", nil)
	consumer := newTestModule(rc, "consumer", []string{"producer"})
	rc.RegisterModule(producer)
	rc.RegisterModule(consumer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rc.Run(ctx)
		close(done)
	}()

	waitFor(t, time.Second, func() bool {
		cs, _ := rc.StateOf("consumer")
		return cs == Operational
	})
	waitFor(t, time.Second, func() bool {
		return len(producer.handledOwners) == 1
	})

	rc.ReportError("consumer", result.New(result.ServiceLost, "consumer failed"), true)

	waitFor(t, time.Second, func() bool {
		cs, _ := rc.StateOf("consumer")
		return cs == NotOperational
	})
	waitFor(t, time.Second, func() bool {
		return len(producer.stoppedOwners) == 1
	})

	if producer.stoppedOwners[0] != "consumer" {
		t.Fatalf("expected producer to be told consumer's handlers stopped, got %v", producer.stoppedOwners)
	}

	rc.Stop()
	cancel()
	<-done
}

func TestChangeStateOfModuleRejectsUnknownModule(t *testing.T) {
	exec := executor.New(5 * time.Millisecond)
	rc := New(exec)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown module")
		}
	}()
	rc.ChangeStateOfModule("ghost", Operational)
}

func TestChangeStateOfModuleRejectsIllegalTransition(t *testing.T) {
	exec := executor.New(5 * time.Millisecond)
	rc := New(exec)
	m := newTestModule(rc, "solo", nil)
	rc.RegisterModule(m)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for illegal transition")
		}
	}()
	// solo starts NotInitialized; jumping straight to Operational skips
	// NotOperational/Starting and must be rejected.
	rc.ChangeStateOfModule("solo", Operational)
}

func TestReportErrorPropagatesToDependents(t *testing.T) {
	exec := executor.New(5 * time.Millisecond)
	user := &silentUserController{}
	rc := New(exec, WithPollInterval(2*time.Millisecond), WithUserController(user))

	producer := newTestModule(rc, "producer", nil)
	consumer := newTestModule(rc, "consumer", []string{"producer"})
	rc.RegisterModule(producer)
	rc.RegisterModule(consumer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rc.Run(ctx)
		close(done)
	}()

	waitFor(t, time.Second, func() bool {
		ps, _ := rc.StateOf("producer")
		return ps == Operational
	})

	rc.ReportError("producer", result.New(result.ServiceLost, "upstream gone"), false)

	waitFor(t, time.Second, func() bool {
		return len(user.errors) >= 2 // producer (non-critical) + consumer (cascaded critical default)
	})

	rc.Stop()
	cancel()
	<-done
}

// stuckModule never reports operational, exercising the starting
// deadline: once it has spent more than startingDeadlineTicks poll
// iterations in Starting it must be forced back to NotOperational, and
// anything depending on it must never reach Operational either.
type stuckModule struct {
	module.Base
}

func (s *stuckModule) Start() {}

func newStuckModule(rc *Controller, name string, deps []string) *stuckModule {
	m := &stuckModule{}
	m.Base = module.NewBase(name, deps, rc, nil)
	return m
}

func TestModuleExceedingStartingDeadlineRevertsAndBlocksDependents(t *testing.T) {
	exec := executor.New(5 * time.Millisecond)
	rc := New(exec, WithPollInterval(time.Millisecond))

	stuck := newStuckModule(rc, "stuck", nil)
	dependent := newTestModule(rc, "dependent", []string{"stuck"})
	rc.RegisterModule(stuck)
	rc.RegisterModule(dependent)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rc.Run(ctx)
		close(done)
	}()

	waitFor(t, time.Second, func() bool {
		ss, _ := rc.StateOf("stuck")
		return ss == Starting
	})
	waitFor(t, time.Second, func() bool {
		ss, _ := rc.StateOf("stuck")
		return ss == NotOperational
	})

	// Give the poll loop a few more iterations to confirm it stays put
	// and never drags the dependent along.
	time.Sleep(20 * time.Millisecond)

	ss, _ := rc.StateOf("stuck")
	if ss != NotOperational {
		t.Fatalf("got stuck module state %v, want NotOperational", ss)
	}
	ds, _ := rc.StateOf("dependent")
	if ds != NotOperational {
		t.Fatalf("got dependent state %v, want NotOperational", ds)
	}

	rc.Stop()
	cancel()
	<-done
}
