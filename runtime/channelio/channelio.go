// Package channelio implements the channel-bound node kinds: "on" (a
// channel source with high-water-mark de-duplication) and "write" (a
// channel sink).
package channelio

import (
	"time"

	"github.com/arcrt/arc/errs"
	"github.com/arcrt/arc/ir"
	"github.com/arcrt/arc/runtime/node"
	"github.com/arcrt/arc/runtime/state"
	"github.com/arcrt/arc/telem"
)

// On reads buffered channel samples and forwards samples the caller has
// not yet seen, tracked by a per-node alignment high-water mark. Reset is
// intentionally not overridden: the high-water mark persists across stage
// reactivation, matching the source's channel::On, which never resets it.
type On struct {
	handle        *state.Node
	channel       ir.ChannelKey
	highWaterMark telem.Alignment
}

// New constructs an On node reading channel.
func New(handle *state.Node, channel ir.ChannelKey) *On {
	return &On{handle: handle, channel: channel}
}

func (o *On) Next(ctx *node.Context) error {
	data, timeSeries, ok := o.handle.ReadChan(o.channel)
	if !ok {
		return nil
	}
	if data.Alignment < o.highWaterMark {
		return nil
	}

	size := data.Len()
	upper := data.Alignment
	if size > 0 {
		upper += telem.Alignment(size - 1)
	}

	out := o.handle.Output(0)
	*out = *data.Clone()
	outTime := o.handle.OutputTime(0)
	*outTime = *timeSeries.Clone()

	o.highWaterMark = upper + 1
	ctx.MarkChanged("output")
	return nil
}

// Reset is deliberately a no-op; see the On doc comment.
func (o *On) Reset() {}

func (o *On) IsOutputTruthy(param string) bool {
	return node.HandleTruthy(o.handle, param)
}

// Write reads input 0 and forwards it to the channel's write buffer with
// a synthetic time series spanning a fixed 100 microseconds total,
// anchored at now, regardless of sample count.
type Write struct {
	handle  *state.Node
	channel ir.ChannelKey
	now     func() time.Time
}

// NewWrite constructs a Write node targeting channel.
func NewWrite(handle *state.Node, channel ir.ChannelKey) *Write {
	return &Write{handle: handle, channel: channel, now: time.Now}
}

func (w *Write) Next(ctx *node.Context) error {
	if !w.handle.RefreshInputs() {
		return nil
	}
	data := w.handle.Input(0)
	if data.Len() == 0 {
		return nil
	}

	timeSeries := linspace(w.now(), 100*time.Microsecond, data.Len())
	w.handle.WriteChan(w.channel, data.Clone(), timeSeries)
	return nil
}

func (w *Write) Reset() {}

func (w *Write) IsOutputTruthy(param string) bool {
	return node.HandleTruthy(w.handle, param)
}

// linspace builds a timestamp series of n samples evenly spaced across
// [start, start+span], matching the source's fixed-total-span behavior
// (the span does not grow with sample count).
func linspace(start time.Time, span time.Duration, n int) *telem.Series {
	s := telem.NewSeries(telem.Timestamp)
	s.Resize(n)
	if n == 1 {
		s.SetUint64(0, uint64(start.UnixNano()))
		return s
	}
	step := span / time.Duration(n-1)
	for i := 0; i < n; i++ {
		s.SetUint64(i, uint64(start.Add(time.Duration(i)*step).UnixNano()))
	}
	return s
}

// Factory constructs On and Write nodes from a "channel" config field.
type Factory struct{}

func (Factory) Handles(typeTag string) bool {
	return typeTag == "on" || typeTag == "write"
}

func (Factory) Create(cfg node.Config) (node.Node, error) {
	raw, ok := cfg.Def.Config.Get("channel")
	if !ok {
		return nil, errs.New(errs.InvalidConfig, "missing required config field 'channel'")
	}
	key, err := toChannelKey(raw.Default)
	if err != nil {
		return nil, err
	}

	switch cfg.Def.TypeTag {
	case "on":
		return New(cfg.Handle, key), nil
	case "write":
		return NewWrite(cfg.Handle, key), nil
	default:
		return nil, errs.New(errs.NotFound, "channelio factory does not handle '%s'", cfg.Def.TypeTag)
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
