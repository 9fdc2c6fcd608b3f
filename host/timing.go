package host

import (
	"time"

	"github.com/arcrt/arc/runtime/timing"
)

// ToleranceSource is the host-side half of the timing core (C8): it owns
// the GCD base-interval tracker the node factory contributes to while the
// graph is being built, and turns that accumulated base interval plus an
// ExecutionMode into the tolerance a host passes to Scheduler.Tick.
//
// The scheduler itself stays mode-agnostic — Tick takes tolerance as a
// plain time.Duration supplied by the caller each tick, mirroring
// spec.md's signature — so ExecutionMode is a host concern, not a
// Scheduler option.
type ToleranceSource struct {
	tracker *timing.BaseIntervalTracker
	mode    timing.ExecutionMode
}

// NewToleranceSource returns a ToleranceSource for mode, along with the
// timing.Factory a host should register into its node.MultiFactory
// alongside its other node-kind factories. Every "interval"/"wait" node
// built through that factory contributes its period or duration to the
// tracker, so the base interval reflects the whole graph by the time the
// first Tick runs.
func NewToleranceSource(mode timing.ExecutionMode) (*ToleranceSource, *timing.Factory) {
	tracker := timing.NewBaseIntervalTracker()
	return &ToleranceSource{tracker: tracker, mode: mode}, timing.NewFactory(tracker)
}

// Tolerance computes the tolerance to pass into the next Scheduler.Tick
// call from the base interval accumulated so far and the configured
// ExecutionMode.
func (ts *ToleranceSource) Tolerance() time.Duration {
	return timing.CalculateTolerance(ts.mode, ts.tracker.Value())
}
