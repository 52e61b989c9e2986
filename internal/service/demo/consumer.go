package demo

import (
	"sync"

	"github.com/oriys/vaf/internal/executor"
	"github.com/oriys/vaf/internal/metrics"
	"github.com/oriys/vaf/internal/module"
	"github.com/oriys/vaf/internal/sample"
	"github.com/oriys/vaf/internal/service"
)

// Consumer is the HelloVaf demo consumer: it calls SetMsgId on the
// provider with an incrementing counter and records every Message it
// receives, for the S1 scenario's assertions.
type Consumer struct {
	service.Module
	hello *HelloInterface

	mu       sync.Mutex
	nextID   int
	calls    []int
	received []string
}

// NewConsumer registers a handler on hello.Message and schedules the
// SetMsgId call runnable at periodTicks, offset 0. hello must belong to
// a provider module already registered as this module's dependency.
func NewConsumer(exec *executor.Executor, reporter module.Reporter, hello *HelloInterface, periodTicks uint64) *Consumer {
	c := &Consumer{hello: hello}
	c.Base = module.NewBase("hello.consumer", []string{"hello.provider"}, reporter, exec)
	hello.Message.RegisterHandler(c.Name(), c.onMessage)
	c.Register("set_msg_id", c.tick, executor.RegisterOpts{PeriodTicks: periodTicks})
	return c
}

func (c *Consumer) onMessage(s sample.Sample[string]) {
	v, ok := s.Get()
	if !ok {
		return
	}
	c.mu.Lock()
	c.received = append(c.received, v)
	c.mu.Unlock()
}

func (c *Consumer) tick() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	c.hello.SetMsgId.Call(id).Get()

	c.mu.Lock()
	c.calls = append(c.calls, id)
	c.mu.Unlock()
}

// Calls returns every id passed to SetMsgId so far, in call order.
func (c *Consumer) Calls() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.calls...)
}

// Received returns every Message value observed so far, in arrival order.
func (c *Consumer) Received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.received...)
}

func (c *Consumer) Start() {
	c.ReportOperational()
}
