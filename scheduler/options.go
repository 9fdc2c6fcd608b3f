package scheduler

import (
	"github.com/arcrt/arc/emit"
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Scheduler at construction time, following the
// functional-options idiom: each Option mutates a private config struct,
// and may return an error, which New reports without constructing the
// Scheduler.
type Option func(*config) error

type config struct {
	emitter emit.Emitter
	metrics *Metrics
	runID   string
}

func defaultConfig() *config {
	return &config{
		emitter: emit.NewNullEmitter(),
	}
}

// WithEmitter sets the structured event emitter.
func WithEmitter(e emit.Emitter) Option {
	return func(c *config) error {
		c.emitter = e
		return nil
	}
}

// WithMetrics registers Prometheus metrics against reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) error {
		c.metrics = NewMetrics(reg)
		return nil
	}
}

// WithRunID overrides the generated run identifier (primarily for
// deterministic tests).
func WithRunID(id string) Option {
	return func(c *config) error {
		c.runID = id
		return nil
	}
}
