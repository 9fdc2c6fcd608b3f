package timing

import (
	"time"

	"github.com/arcrt/arc/runtime/node"
	"github.com/arcrt/arc/runtime/state"
)

// Interval is a periodic timer node: it fires no more often than its
// configured period minus the current tolerance, and fires on at least
// one tick within period+tolerance of the scheduled deadline under
// nominal load.
type Interval struct {
	handle    *state.Node
	period    time.Duration
	lastFired time.Duration
}

// NewInterval constructs an Interval firing every period.
func NewInterval(handle *state.Node, period time.Duration) *Interval {
	i := &Interval{handle: handle, period: period}
	i.Reset()
	return i
}

func (i *Interval) Next(ctx *node.Context) error {
	if ctx.Reason != node.TimerTick {
		return nil
	}
	if ctx.Elapsed-i.lastFired < i.period-ctx.Tolerance {
		return nil
	}
	out := i.handle.Output(0)
	out.Resize(1)
	out.SetUint8(0, 1)
	outTime := i.handle.OutputTime(0)
	outTime.Resize(1)
	outTime.SetUint64(0, uint64(ctx.Elapsed))
	i.lastFired = ctx.Elapsed
	ctx.MarkChanged("output")
	return nil
}

// Reset arms the timer to fire immediately on the next qualifying tick,
// by moving the last-fired mark a full period into the past.
func (i *Interval) Reset() {
	i.lastFired = -i.period
}

func (i *Interval) IsOutputTruthy(param string) bool {
	return node.HandleTruthy(i.handle, param)
}

// Wait is a one-shot timer node: it fires exactly once between any two
// Reset calls, measured from the elapsed time of its first Next after a
// reset.
type Wait struct {
	handle   *state.Node
	duration time.Duration
	hasStart bool
	start    time.Duration
	fired    bool
}

// NewWait constructs a Wait firing once after duration has elapsed from
// its first post-reset Next.
func NewWait(handle *state.Node, duration time.Duration) *Wait {
	return &Wait{handle: handle, duration: duration}
}

func (w *Wait) Next(ctx *node.Context) error {
	if ctx.Reason != node.TimerTick {
		return nil
	}
	if w.fired {
		return nil
	}
	if !w.hasStart {
		w.start = ctx.Elapsed
		w.hasStart = true
	}
	if ctx.Elapsed-w.start < w.duration-ctx.Tolerance {
		return nil
	}
	out := w.handle.Output(0)
	out.Resize(1)
	out.SetUint8(0, 1)
	outTime := w.handle.OutputTime(0)
	outTime.Resize(1)
	outTime.SetUint64(0, uint64(ctx.Elapsed))
	w.fired = true
	ctx.MarkChanged("output")
	return nil
}

// Reset clears both the captured start time and the fired flag, allowing
// the wait to fire again on a future tick.
func (w *Wait) Reset() {
	w.hasStart = false
	w.fired = false
}

func (w *Wait) IsOutputTruthy(param string) bool {
	return node.HandleTruthy(w.handle, param)
}
