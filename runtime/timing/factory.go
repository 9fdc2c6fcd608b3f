package timing

import (
	"time"

	"github.com/arcrt/arc/errs"
	"github.com/arcrt/arc/runtime/node"
)

// Factory constructs "interval" and "wait" nodes, and accumulates their
// periods/durations into a shared base interval via GCD, per §4.8.
type Factory struct {
	tracker *BaseIntervalTracker
}

// NewFactory returns a Factory sharing tracker across every node it
// constructs, so the scheduler can read the accumulated base interval
// once IR construction completes.
func NewFactory(tracker *BaseIntervalTracker) *Factory {
	return &Factory{tracker: tracker}
}

func (f *Factory) Handles(typeTag string) bool {
	return typeTag == "interval" || typeTag == "wait"
}

func (f *Factory) Create(cfg node.Config) (node.Node, error) {
	switch cfg.Def.TypeTag {
	case "interval":
		period, err := durationField(cfg, "period")
		if err != nil {
			return nil, err
		}
		f.tracker.Contribute(period)
		return NewInterval(cfg.Handle, period), nil
	case "wait":
		duration, err := durationField(cfg, "duration")
		if err != nil {
			return nil, err
		}
		f.tracker.Contribute(duration)
		return NewWait(cfg.Handle, duration), nil
	default:
		return nil, errs.New(errs.NotFound, "timing factory does not handle '%s'", cfg.Def.TypeTag)
	}
}

func durationField(cfg node.Config, name string) (time.Duration, error) {
	p, ok := cfg.Def.Config.Get(name)
	if !ok {
		return 0, errs.New(errs.InvalidConfig, "missing required config field '%s'", name)
	}
	switch v := p.Default.(type) {
	case time.Duration:
		return v, nil
	case int64:
		return time.Duration(v), nil
	case float64:
		return time.Duration(v), nil
	default:
		return 0, errs.New(errs.InvalidConfig, "config field '%s' is not a duration", name)
	}
}
