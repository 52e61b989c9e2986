package runtime

import "github.com/oriys/vaf/internal/module"

// container wraps one registered module with the bookkeeping the
// Executable Controller needs: its current state and, while Starting,
// how many poll iterations it has spent there.
type container struct {
	name            string
	controller      module.Controller
	dependencies    []string
	state           State
	startingCounter int
}
