package demo

import (
	"fmt"
	"sync/atomic"

	"github.com/oriys/vaf/internal/executor"
	"github.com/oriys/vaf/internal/metrics"
	"github.com/oriys/vaf/internal/module"
	"github.com/oriys/vaf/internal/result"
	"github.com/oriys/vaf/internal/service"
)

// Provider is the HelloVaf demo provider: it publishes a greeting
// embedding a message ID that consumers update via the SetMsgId
// operation, and counts how many times it has published.
type Provider struct {
	service.Module
	Hello *HelloInterface

	msgID     atomic.Int64
	published atomic.Uint64
}

// NewProvider registers a HelloInterface against the module and schedules
// its publish runnable at periodTicks, offset 0.
func NewProvider(exec *executor.Executor, reporter module.Reporter, mtx *metrics.Metrics, periodTicks uint64) *Provider {
	p := &Provider{}
	p.Base = module.NewBase("hello.provider", nil, reporter, exec)
	p.Hello = NewHelloInterface(&p.Module, mtx)
	p.Hello.BindProvider(p.setMsgId)
	p.Register("publish", p.publish, executor.RegisterOpts{PeriodTicks: periodTicks})
	return p
}

func (p *Provider) setMsgId(id int) result.Result[struct{}] {
	p.msgID.Store(int64(id))
	return result.Ok(struct{}{})
}

func (p *Provider) publish() {
	id := p.msgID.Load()
	p.Hello.Message.Set(fmt.Sprintf("Hello, VAF! - MsgID: %d", id))
	p.published.Add(1)
}

// Published returns the number of messages published so far.
func (p *Provider) Published() uint64 { return p.published.Load() }

func (p *Provider) Start() {
	p.ReportOperational()
}
