// Package timing implements the timing core (C8): execution modes,
// GCD-based base interval tracking, tolerance calculation, and the
// "interval" and "wait" timer node kinds.
package timing

import "time"

// ExecutionMode selects how aggressively the scheduler's tolerance
// shrinks around timer deadlines.
type ExecutionMode int

const (
	Auto ExecutionMode = iota
	EventDriven
	Hybrid
	HighRate
	BusyWait
	RTEvent
)

// UnsetBaseInterval is the sentinel meaning no timer node has
// contributed a period or duration yet.
const UnsetBaseInterval time.Duration = 1<<63 - 1 // time.Duration max

// CalculateTolerance implements §4.8's per-mode tolerance formula.
func CalculateTolerance(mode ExecutionMode, baseInterval time.Duration) time.Duration {
	if baseInterval == UnsetBaseInterval {
		return 5 * time.Millisecond
	}
	half := baseInterval / 2
	switch mode {
	case RTEvent, BusyWait:
		return minDuration(half, 100*time.Microsecond)
	case HighRate:
		return minDuration(half, time.Millisecond)
	default: // EventDriven, Hybrid, Auto
		return minDuration(half, 5*time.Millisecond)
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// gcdDuration returns the greatest common divisor of two durations,
// treated as integer nanosecond counts.
func gcdDuration(a, b time.Duration) time.Duration {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

// BaseIntervalTracker accumulates the GCD of every period/duration
// contributed by timer nodes at factory construction time, per §4.8.
type BaseIntervalTracker struct {
	value time.Duration
}

// NewBaseIntervalTracker returns a tracker starting at UnsetBaseInterval.
func NewBaseIntervalTracker() *BaseIntervalTracker {
	return &BaseIntervalTracker{value: UnsetBaseInterval}
}

// Contribute folds span into the running GCD.
func (t *BaseIntervalTracker) Contribute(span time.Duration) {
	if span <= 0 {
		return
	}
	if t.value == UnsetBaseInterval {
		t.value = span
		return
	}
	t.value = gcdDuration(t.value, span)
}

// Value returns the current base interval, or UnsetBaseInterval if no
// span has been contributed.
func (t *BaseIntervalTracker) Value() time.Duration {
	return t.value
}
