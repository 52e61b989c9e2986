// Package demo implements the HelloVaf interface: one data element
// ("Message") and one operation ("SetMsgId"), used by the Provider and
// Consumer modules that cmd/vafrun registers and by the S1 scenario test.
package demo

import (
	"github.com/oriys/vaf/internal/metrics"
	"github.com/oriys/vaf/internal/result"
	"github.com/oriys/vaf/internal/service"
)

const InterfaceName = "HelloVaf"

// HelloInterface groups the generic service.Element/service.Operation
// instances a generated-by-hand HelloVaf adapter would expose: a
// published greeting string and an operation to set the message's
// embedded counter.
type HelloInterface struct {
	Message  *service.Element[string]
	SetMsgId *service.Operation[int, struct{}]
}

// NewHelloInterface creates the element and operation against owner's
// gating registry, with mtx wired for their publish/call metrics.
func NewHelloInterface(owner *service.Module, mtx *metrics.Metrics) *HelloInterface {
	return &HelloInterface{
		Message:  service.NewElement[string](owner, InterfaceName, "Message", mtx),
		SetMsgId: service.NewOperation[int, struct{}](InterfaceName, "SetMsgId", mtx),
	}
}

// BindProvider installs fn as the SetMsgId operation handler; NewProvider
// calls this while constructing the Provider module.
func (h *HelloInterface) BindProvider(fn func(id int) result.Result[struct{}]) {
	h.SetMsgId.RegisterHandler(fn)
}
