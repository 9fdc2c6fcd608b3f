// Package match implements the "match" node kind: a router that inspects
// a string input and activates the output corresponding to the first
// matching case.
package match

import (
	"github.com/arcrt/arc/errs"
	"github.com/arcrt/arc/runtime/node"
	"github.com/arcrt/arc/runtime/state"
)

// Case maps a literal string value to the output param name that should
// fire when input 0 holds that value.
type Case struct {
	Value  string
	Output string
}

// Match reads input 0 (the first element of the refreshed input series,
// not the last) and, if it matches a configured case, writes u8(1) to
// the corresponding output and marks it changed.
type Match struct {
	handle *state.Node
	cases  []Case
}

// New constructs a Match node routing among cases.
func New(handle *state.Node, cases []Case) *Match {
	return &Match{handle: handle, cases: cases}
}

func (m *Match) Next(ctx *node.Context) error {
	if !m.handle.RefreshInputs() {
		return nil
	}
	in := m.handle.Input(0)
	if in.Len() == 0 {
		return nil
	}
	value := in.String(0)

	for _, c := range m.cases {
		if c.Value != value {
			continue
		}
		idx := m.handle.OutputIndex(c.Output)
		if idx < 0 {
			continue
		}
		out := m.handle.Output(idx)
		out.Resize(1)
		out.SetUint8(0, 1)
		ctx.MarkChanged(c.Output)
		return nil
	}
	return nil
}

func (m *Match) Reset() {}

func (m *Match) IsOutputTruthy(param string) bool {
	return node.HandleTruthy(m.handle, param)
}

// Factory constructs Match nodes from a "cases" config field: an array of
// {value, output} entries.
type Factory struct{}

func (Factory) Handles(typeTag string) bool { return typeTag == "match" }

func (Factory) Create(cfg node.Config) (node.Node, error) {
	raw, ok := cfg.Def.Config.Get("cases")
	if !ok {
		return nil, errs.New(errs.InvalidConfig, "missing required config field 'cases'")
	}
	entries, ok := raw.Default.([]Case)
	if !ok {
		return nil, errs.New(errs.InvalidConfig, "config field 'cases' is not a []match.Case")
	}
	for _, c := range entries {
		if cfg.Def.Outputs.Index(c.Output) < 0 {
			return nil, errs.New(errs.InvalidConfig, "case output '%s' is not a declared output", c.Output)
		}
	}
	return New(cfg.Handle, entries), nil
}
