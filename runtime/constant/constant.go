// Package constant implements the "constant" node kind: a source that
// emits a fixed, typed value exactly once after construction or reset.
package constant

import (
	"time"

	"github.com/arcrt/arc/errs"
	"github.com/arcrt/arc/runtime/node"
	"github.com/arcrt/arc/runtime/state"
	"github.com/arcrt/arc/telem"
)

// Constant emits Value once, on the first Next after construction or
// Reset, and is a no-op on every subsequent Next.
type Constant struct {
	handle      *state.Node
	value       interface{}
	dataType    telem.DataType
	initialized bool
}

// New constructs a Constant node bound to handle, emitting value typed as
// dataType on output 0.
func New(handle *state.Node, value interface{}, dataType telem.DataType) *Constant {
	return &Constant{handle: handle, value: value, dataType: dataType}
}

func (c *Constant) Next(ctx *node.Context) error {
	if c.initialized {
		return nil
	}
	out := c.handle.Output(0)
	out.Resize(1)
	if err := setTyped(out, c.dataType, c.value); err != nil {
		return err
	}
	outTime := c.handle.OutputTime(0)
	outTime.Resize(1)
	outTime.SetTimestamp(0, time.Now())

	c.initialized = true
	ctx.MarkChanged("output")
	return nil
}

// Reset clears the initialized flag so the value is emitted again on
// the next Next call.
func (c *Constant) Reset() {
	c.initialized = false
}

func (c *Constant) IsOutputTruthy(param string) bool {
	return node.HandleTruthy(c.handle, param)
}

func setTyped(s *telem.Series, t telem.DataType, value interface{}) error {
	switch t {
	case telem.Int8, telem.Int16, telem.Int32, telem.Int64:
		v, err := toInt64(value)
		if err != nil {
			return err
		}
		s.SetInt64(0, v)
	case telem.Uint8:
		v, err := toInt64(value)
		if err != nil {
			return err
		}
		s.SetUint8(0, uint8(v))
	case telem.Uint16, telem.Uint32, telem.Uint64:
		v, err := toInt64(value)
		if err != nil {
			return err
		}
		s.SetUint64(0, uint64(v))
	case telem.Float32:
		v, err := toFloat64(value)
		if err != nil {
			return err
		}
		s.SetFloat32(0, float32(v))
	case telem.Float64:
		v, err := toFloat64(value)
		if err != nil {
			return err
		}
		s.SetFloat64(0, v)
	case telem.String:
		v, ok := value.(string)
		if !ok {
			return errs.New(errs.InvalidConfig, "constant value is not a string")
		}
		s.SetString(0, v)
	default:
		return errs.New(errs.InvalidConfig, "unsupported constant data type")
	}
	return nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, errs.New(errs.InvalidConfig, "constant value is not numeric")
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, errs.New(errs.InvalidConfig, "constant value is not numeric")
	}
}

// Factory constructs Constant nodes from IR config: a required "value"
// field and the node's declared output[0] data type.
type Factory struct{}

func (Factory) Handles(typeTag string) bool { return typeTag == "constant" }

func (Factory) Create(cfg node.Config) (node.Node, error) {
	value, ok := cfg.Def.Config.Get("value")
	if !ok {
		return nil, errs.New(errs.InvalidConfig, "missing required config field 'value'")
	}
	if len(cfg.Def.Outputs) == 0 {
		return nil, errs.New(errs.InvalidConfig, "constant node requires an output[0] definition")
	}
	return New(cfg.Handle, value.Default, cfg.Def.Outputs[0].Type), nil
}
