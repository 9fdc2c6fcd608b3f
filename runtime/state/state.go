// Package state implements the runtime's per-tick data store (C2) and the
// per-node cursor over it (C3, NodeHandle).
package state

import (
	"github.com/arcrt/arc/errs"
	"github.com/arcrt/arc/ir"
	"github.com/arcrt/arc/telem"
)

// ChannelDigest describes one physical channel the State is constructed
// to understand: its data type, and the index channel (if any) that
// carries its sample timestamps.
type ChannelDigest struct {
	Key      ir.ChannelKey
	DataType telem.DataType
	IndexKey ir.ChannelKey // zero means "no index channel"
}

// AuthorityChange is a pending request to change write authority over a
// channel, or globally if Channel is nil.
type AuthorityChange struct {
	Channel *ir.ChannelKey
	Value   uint8
}

// State is the runtime's per-node output store plus the channel I/O and
// stage-tracking buffers the scheduler drains and advances each tick. All
// operations are single-threaded, per §5.
type State struct {
	graph *ir.IR

	outputs  map[ir.Handle]*telem.Value
	digests  map[ir.ChannelKey]ChannelDigest

	channelReads  map[ir.ChannelKey]telem.ChannelSample
	channelWrites []telem.ChannelSample
	pendingAuth   []AuthorityChange

	// currentStage maps a sequence key to the key of its active stage.
	currentStage map[string]string
}

// New constructs a State from an IR and the host's channel digests. It
// allocates one Value per (node, output_param) Handle across all IR
// nodes, and seeds currentStage with each sequence's first stage.
func New(graph *ir.IR, digests []ChannelDigest) *State {
	s := &State{
		graph:        graph,
		outputs:      make(map[ir.Handle]*telem.Value),
		digests:      make(map[ir.ChannelKey]ChannelDigest, len(digests)),
		channelReads: make(map[ir.ChannelKey]telem.ChannelSample),
		currentStage: make(map[string]string),
	}
	for _, d := range digests {
		s.digests[d.Key] = d
	}
	for _, n := range graph.Nodes {
		for _, out := range n.Outputs {
			h := ir.Handle{Node: n.Key, Param: out.Name}
			s.outputs[h] = telem.NewValue(out.Type)
		}
	}
	for _, seq := range graph.Sequences {
		if len(seq.Stages) > 0 {
			s.currentStage[seq.Key] = seq.Stages[0].Key
		}
	}
	return s
}

// IR returns the compiled graph this State was built from.
func (s *State) IR() *ir.IR { return s.graph }

// Output returns the Value for a given output Handle, or nil if the
// Handle is unknown.
func (s *State) Output(h ir.Handle) *telem.Value {
	return s.outputs[h]
}

// Node obtains a NodeHandle bound to this State. The handle's inputs are
// the edges whose target.node == key, ordered by the node's input param
// index; outputs are the node's output Handles, in param order.
func (s *State) Node(key string) (*Node, error) {
	def := s.graph.FindNode(key)
	if def == nil {
		return nil, errs.New(errs.NotFound, "unknown node '%s'", key)
	}

	inputs := make([]ir.Edge, len(def.Inputs))
	for i, param := range def.Inputs {
		target := ir.Handle{Node: key, Param: param.Name}
		if e := s.graph.FindEdgeByTarget(target); e != nil {
			inputs[i] = *e
		} else {
			inputs[i] = ir.Edge{Target: target}
		}
	}

	outputs := make([]ir.Handle, len(def.Outputs))
	for i, param := range def.Outputs {
		outputs[i] = ir.Handle{Node: key, Param: param.Name}
	}

	return &Node{
		state:     s,
		def:       def,
		inputs:    inputs,
		outputs:   outputs,
		entries:   make([]inputEntry, len(inputs)),
		aligned:   make([]*telem.Value, len(inputs)),
	}, nil
}

// Ingest replaces channel_reads with the channels in frame.
func (s *State) Ingest(frame telem.Frame) {
	reads := make(map[ir.ChannelKey]telem.ChannelSample, len(frame.Channels))
	for key, sample := range frame.Channels {
		reads[key] = sample
	}
	s.channelReads = reads
}

// ClearReads empties channel_reads.
func (s *State) ClearReads() {
	s.channelReads = make(map[ir.ChannelKey]telem.ChannelSample)
}

// FlushWrites removes and returns all accumulated write buffers.
func (s *State) FlushWrites() []telem.ChannelSample {
	out := s.channelWrites
	s.channelWrites = nil
	return out
}

// FlushAuthorityChanges removes and returns the pending authority queue.
func (s *State) FlushAuthorityChanges() []AuthorityChange {
	out := s.pendingAuth
	s.pendingAuth = nil
	return out
}

// SetAuthority appends a request to the pending authority queue.
func (s *State) SetAuthority(channel *ir.ChannelKey, value uint8) {
	s.pendingAuth = append(s.pendingAuth, AuthorityChange{Channel: channel, Value: value})
}

// CurrentStage returns the active stage key for a sequence, and whether
// the sequence is known.
func (s *State) CurrentStage(sequenceKey string) (string, bool) {
	key, ok := s.currentStage[sequenceKey]
	return key, ok
}

// SetCurrentStage advances a sequence's active stage.
func (s *State) SetCurrentStage(sequenceKey, stageKey string) {
	s.currentStage[sequenceKey] = stageKey
}
