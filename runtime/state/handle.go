package state

import (
	"time"

	"github.com/arcrt/arc/ir"
	"github.com/arcrt/arc/telem"
)

// inputEntry is the per-input carry NodeHandle uses to detect whether an
// input has advanced since the last RefreshInputs call, tracked via the
// source's most recently observed timestamp rather than series identity
// (outputs are mutated in place, not replaced, so length/pointer checks
// alone would miss same-length updates).
type inputEntry struct {
	lastTimestamp uint64
	seen          bool
}

// Node is a cursor over a State scoped to one IR node: it resolves the
// node's input edges to their source Values, snapshots them on refresh,
// and exposes the node's own output slots for mutation.
type Node struct {
	state *State
	def   *ir.Node

	inputs  []ir.Edge
	outputs []ir.Handle

	entries []inputEntry
	aligned []*telem.Value
}

// Key returns the bound node's IR key.
func (n *Node) Key() string { return n.def.Key }

// TypeTag returns the bound node's IR type tag.
func (n *Node) TypeTag() string { return n.def.TypeTag }

// Config returns the bound node's static config params.
func (n *Node) Config() ir.Params { return n.def.Config }

// Channels returns the bound node's channel bindings.
func (n *Node) Channels() ir.Channels { return n.def.Channels }

// RefreshInputs re-reads all input source series into aligned slots and
// reports whether any input advanced (has newer samples than the last
// refresh).
func (n *Node) RefreshInputs() bool {
	advanced := false
	var zero ir.Handle
	for i, edge := range n.inputs {
		if edge.Source == zero {
			continue
		}
		src := n.state.outputs[edge.Source]
		if src == nil {
			continue
		}
		n.aligned[i] = src

		if src.Time.Len() == 0 {
			continue
		}
		last := src.Time.TimestampNanos(src.Time.Len() - 1)
		if !n.entries[i].seen || last > n.entries[i].lastTimestamp {
			n.entries[i].lastTimestamp = last
			n.entries[i].seen = true
			advanced = true
		}
	}
	return advanced
}

// WouldAdvance reports whether a RefreshInputs call would currently report
// an advance, without mutating the per-input carry. The scheduler uses
// this to decide whether to add an input-driven node to the changed set,
// leaving the actual consuming refresh to the node's own Next call.
func (n *Node) WouldAdvance() bool {
	var zero ir.Handle
	for i, edge := range n.inputs {
		if edge.Source == zero {
			continue
		}
		src := n.state.outputs[edge.Source]
		if src == nil || src.Time.Len() == 0 {
			continue
		}
		last := src.Time.TimestampNanos(src.Time.Len() - 1)
		if !n.entries[i].seen || last > n.entries[i].lastTimestamp {
			return true
		}
	}
	return false
}

// Input returns input i's aligned data series. Returns an empty series of
// unknown type if the input has never been refreshed or has no driving
// edge.
func (n *Node) Input(i int) *telem.Series {
	if n.aligned[i] == nil {
		return telem.NewSeries(ir.Unknown)
	}
	return n.aligned[i].Data
}

// InputTime returns input i's aligned time series.
func (n *Node) InputTime(i int) *telem.Series {
	if n.aligned[i] == nil {
		return telem.NewSeries(telem.Timestamp)
	}
	return n.aligned[i].Time
}

// Output returns output i's mutable data series.
func (n *Node) Output(i int) *telem.Series {
	return n.state.outputs[n.outputs[i]].Data
}

// OutputTime returns output i's mutable time series.
func (n *Node) OutputTime(i int) *telem.Series {
	return n.state.outputs[n.outputs[i]].Time
}

// OutputIndex returns the param index of the named output, or -1.
func (n *Node) OutputIndex(name string) int {
	return n.def.Outputs.Index(name)
}

// ReadChan reads buffered channel samples for key, returning the data
// series, its time series (synthesized if the channel has no index), and
// whether the channel had any buffered data this tick.
func (n *Node) ReadChan(key ir.ChannelKey) (data, timeSeries *telem.Series, ok bool) {
	sample, present := n.state.channelReads[key]
	if !present {
		return nil, nil, false
	}

	digest := n.state.digests[key]
	if digest.IndexKey != 0 {
		if idx, idxOK := n.state.channelReads[digest.IndexKey]; idxOK {
			return sample.Data, idx.Data, true
		}
	}
	if sample.Time != nil && sample.Time.Len() == sample.Data.Len() {
		return sample.Data, sample.Time, true
	}

	synthesized := synthesizeTimestamps(sample.Data.Len(), sample.Data.Alignment)
	return sample.Data, synthesized, true
}

// synthesizeTimestamps builds a monotonically increasing timestamp series
// for a channel with no index, stable only in the sense of being
// increasing within a call — see DESIGN.md's Open Question resolution.
func synthesizeTimestamps(n int, alignment telem.Alignment) *telem.Series {
	s := telem.NewSeries(telem.Timestamp)
	s.Resize(n)
	s.Alignment = alignment
	base := time.Now().UnixNano()
	for i := 0; i < n; i++ {
		s.SetUint64(i, uint64(base+int64(i)))
	}
	return s
}

// WriteChan appends a write buffer for the host to drain at tick end.
func (n *Node) WriteChan(key ir.ChannelKey, data, timeSeries *telem.Series) {
	n.state.channelWrites = append(n.state.channelWrites, telem.ChannelSample{
		Channel: key,
		Data:    data,
		Time:    timeSeries,
	})
}

// IsOutputTruthy reports whether the named output's last element is
// truthy, per the Series truthy predicate. Returns false for an unknown
// output name.
func (n *Node) IsOutputTruthy(paramName string) bool {
	idx := n.OutputIndex(paramName)
	if idx < 0 {
		return false
	}
	return n.Output(idx).IsTruthy()
}
