// Package emit provides structured, leveled event emission for the
// scheduler, with pluggable backends.
package emit

import "context"

// Event is one observability record emitted by the scheduler: a tick
// boundary, a node error, or a stage activation.
type Event struct {
	RunID  string
	Tick   int64
	Node   string
	Msg    string
	Meta   map[string]interface{}
}

// Emitter is the pluggable event sink the scheduler reports through.
type Emitter interface {
	Emit(event Event)
	EmitBatch(ctx context.Context, events []Event) error
	Flush(ctx context.Context) error
}
