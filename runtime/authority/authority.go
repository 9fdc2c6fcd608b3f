// Package authority implements the "set_authority" node kind: a control
// node that requests a change of write authority over a channel, or
// globally when no channel is configured.
package authority

import (
	"github.com/arcrt/arc/errs"
	"github.com/arcrt/arc/ir"
	"github.com/arcrt/arc/runtime/node"
	"github.com/arcrt/arc/runtime/state"
)

// SetAuthority holds a direct reference to the State rather than a
// NodeHandle: it is not a data source, has no output slots, and every
// invocation acts on State's shared authority queue directly.
type SetAuthority struct {
	state   *state.State
	value   uint8
	channel *ir.ChannelKey // nil means global
}

// New constructs a SetAuthority node requesting value on channel, or
// globally if channel is nil.
func New(s *state.State, value uint8, channel *ir.ChannelKey) *SetAuthority {
	return &SetAuthority{state: s, value: value, channel: channel}
}

func (a *SetAuthority) Next(ctx *node.Context) error {
	a.state.SetAuthority(a.channel, a.value)
	return nil
}

func (a *SetAuthority) Reset() {}

// IsOutputTruthy is always false: set_authority is not a data source.
func (a *SetAuthority) IsOutputTruthy(string) bool { return false }

// Factory constructs SetAuthority nodes. It is built with a direct
// reference to the running State, rather than obtaining one per node via
// Config, since set_authority does not operate through a NodeHandle.
type Factory struct {
	state *state.State
}

// NewFactory binds the factory to the State every constructed node will
// mutate.
func NewFactory(s *state.State) *Factory {
	return &Factory{state: s}
}

func (f *Factory) Handles(typeTag string) bool { return typeTag == "set_authority" }

func (f *Factory) Create(cfg node.Config) (node.Node, error) {
	value, ok := cfg.Def.Config.Get("value")
	if !ok {
		return nil, errs.New(errs.InvalidConfig, "missing required config field 'value'")
	}
	v, err := toUint8(value.Default)
	if err != nil {
		return nil, err
	}

	var channel *ir.ChannelKey
	if raw, ok := cfg.Def.Config.Get("channel"); ok {
		ck, err := toChannelKey(raw.Default)
		if err != nil {
			return nil, err
		}
		if ck != 0 {
			channel = &ck
		}
	}

	return New(f.state, v, channel), nil
}

func toUint8(v interface{}) (uint8, error) {
	switch n := v.(type) {
	case int:
		return uint8(n), nil
	case int64:
		return uint8(n), nil
	case uint8:
		return n, nil
	default:
		return 0, errs.New(errs.InvalidConfig, "config field 'value' is not numeric")
	}
}

func toChannelKey(v interface{}) (ir.ChannelKey, error) {
	switch n := v.(type) {
	case int:
		return ir.ChannelKey(n), nil
	case int64:
		return ir.ChannelKey(n), nil
	case uint32:
		return ir.ChannelKey(n), nil
	case ir.ChannelKey:
		return n, nil
	default:
		return 0, errs.New(errs.InvalidConfig, "config field 'channel' is not a channel key")
	}
}
