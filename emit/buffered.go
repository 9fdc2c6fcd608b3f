package emit

import "context"

// BufferedEmitter accumulates events in memory, for tests and for hosts
// that want to inspect a run's event stream after the fact.
type BufferedEmitter struct {
	Events []Event
}

// NewBufferedEmitter returns an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{}
}

func (b *BufferedEmitter) Emit(event Event) {
	b.Events = append(b.Events, event)
}

func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	b.Events = append(b.Events, events...)
	return nil
}

func (b *BufferedEmitter) Flush(_ context.Context) error {
	return nil
}
