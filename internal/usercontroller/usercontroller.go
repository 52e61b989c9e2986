// Package usercontroller defines the lifecycle hook interface the
// Executable Controller drives the embedding application through, plus a
// default policy implementation.
package usercontroller

import (
	"log/slog"
	"os"

	"github.com/oriys/vaf/internal/logging"
	"github.com/oriys/vaf/internal/result"
)

// UserController receives the six lifecycle hooks around module
// initialization, start, and shutdown, plus every error reported by any
// module that does not fully handle it itself.
type UserController interface {
	PreInitialize()
	PostInitialize()
	PreStart()
	PostStart()
	PreShutdown()
	PostShutdown()
	OnError(err result.Error, moduleName string, critical bool)
}

// Default implements UserController with the spec's default policy: log
// every error, and abort the process on a critical one. Embed it in an
// application-specific controller to override individual hooks.
type Default struct {
	Log *slog.Logger
}

// NewDefault builds a Default controller logging through the process
// operational logger.
func NewDefault() *Default {
	return &Default{Log: logging.Op()}
}

func (d *Default) PreInitialize()  {}
func (d *Default) PostInitialize() {}
func (d *Default) PreStart()       {}
func (d *Default) PostStart()      {}
func (d *Default) PreShutdown()    {}
func (d *Default) PostShutdown()   {}

// OnError logs every error; a critical one aborts the process after
// logging, since there is no well-defined way to keep running with a
// module the runtime could not recover.
func (d *Default) OnError(err result.Error, moduleName string, critical bool) {
	log := d.Log
	if log == nil {
		log = logging.Op()
	}
	log.Error("module reported error", "module", moduleName, "error", err.Error(), "critical", critical)
	if critical {
		os.Exit(1)
	}
}
