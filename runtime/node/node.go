// Package node defines the polymorphic node execution interface (C4) and
// the factory registry (C5) that constructs concrete node kinds from IR
// definitions.
package node

import (
	"time"

	"github.com/arcrt/arc/ir"
	"github.com/arcrt/arc/runtime/state"
)

// Reason identifies why the scheduler is invoking a node's Next this
// tick.
type Reason int

const (
	// TimerTick invokes timer-like nodes on every tick regardless of
	// input activity.
	TimerTick Reason = iota
	// ChannelInput invokes a node because its refreshed inputs advanced.
	ChannelInput
	// Activation invokes a node because an incoming edge propagated a
	// change into it this tick (a continuous edge, or a one-shot edge whose
	// source was truthy), or because it was deferred from the prior tick.
	Activation
)

func (r Reason) String() string {
	switch r {
	case TimerTick:
		return "timer_tick"
	case ChannelInput:
		return "channel_input"
	case Activation:
		return "activation"
	default:
		return "unknown"
	}
}

// Context carries everything a node needs for one dispatch step: timing
// information and the scheduler capability closures it uses to report
// back. Closures are used rather than an interface so the scheduler can
// close over tick-local buffers without exposing them, matching the
// "capability closures" design noted for the source system.
type Context struct {
	Elapsed   time.Duration
	Tolerance time.Duration
	Reason    Reason

	// MarkChanged reports that the named output has new data. The
	// scheduler turns this into downstream edge activations.
	MarkChanged func(outputParam string)

	// ReportError surfaces a non-fatal error from within Next.
	ReportError func(err error)

	// ActivateStage requests a transition to the next stage in the
	// node's sequence.
	ActivateStage func()
}

// Node is the execution interface every concrete node kind implements.
type Node interface {
	// Next performs one dispatch step.
	Next(ctx *Context) error

	// Reset is called when a stage containing the node is activated.
	Reset()

	// IsOutputTruthy reports whether the named output is truthy. Most
	// node kinds delegate this to their NodeHandle.
	IsOutputTruthy(param string) bool
}

// HandleTruthy is the default IsOutputTruthy implementation: delegate to
// the node's NodeHandle, matching §4.3's stated default.
func HandleTruthy(handle *state.Node, param string) bool {
	return handle.IsOutputTruthy(param)
}

// Config is what a Factory receives to construct one node instance: its
// IR definition and a NodeHandle already bound to it.
type Config struct {
	Def    ir.Node
	Handle *state.Node
}
