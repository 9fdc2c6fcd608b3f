// Package stage implements the "stage_entry" node kind: the activation
// node that requests a sequence's transition to its next stage.
package stage

import (
	"github.com/arcrt/arc/runtime/node"
)

// Entry represents the entry point of a stage. It never reads inputs: the
// scheduler only dispatches it via a one-shot edge whose source was
// truthy, so no input check is needed here — mark_changed already
// validated the upstream truthy transition before adding it to the
// changed set.
type Entry struct{}

// New constructs a stage_entry node. It holds no per-instance state.
func New() *Entry { return &Entry{} }

func (e *Entry) Next(ctx *node.Context) error {
	ctx.ActivateStage()
	return nil
}

func (e *Entry) Reset() {}

// IsOutputTruthy is always false: stage_entry produces no output and is
// never itself a one-shot edge source.
func (e *Entry) IsOutputTruthy(string) bool { return false }

// Factory constructs Entry nodes for the "stage_entry" type tag.
type Factory struct{}

func (Factory) Handles(typeTag string) bool { return typeTag == "stage_entry" }

func (Factory) Create(cfg node.Config) (node.Node, error) {
	return New(), nil
}
