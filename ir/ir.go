// Package ir defines the immutable, compiled graph representation that the
// runtime executes: nodes, edges, strata, and stage sequences.
package ir

import "fmt"

// ChannelKey identifies a physical channel in the host telemetry layer.
type ChannelKey uint32

// EdgeKind distinguishes propagation semantics.
type EdgeKind int

const (
	// Continuous edges propagate whenever the source output changes.
	Continuous EdgeKind = iota
	// OneShot edges propagate only when the source output is truthy at
	// the moment of change.
	OneShot
)

func (k EdgeKind) String() string {
	if k == OneShot {
		return "one-shot"
	}
	return "continuous"
}

// Handle names one endpoint of a connection: a (node, param) pair.
// Equality and hashing are structural, which a plain comparable struct
// gives for free as a Go map key.
type Handle struct {
	Node  string
	Param string
}

func (h Handle) String() string {
	return h.Node + "." + h.Param
}

// Edge connects a source Handle to a target Handle.
type Edge struct {
	Source Handle
	Target Handle
	Kind   EdgeKind
}

func (e Edge) String() string {
	arrow := " -> "
	if e.Kind == OneShot {
		arrow = " => "
	}
	return e.Source.String() + arrow + e.Target.String()
}

// DataType enumerates the scalar and string types a Param or Series may
// carry.
type DataType int

const (
	Unknown DataType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	StringT
	TimestampT
)

// Param describes one named, typed input or output slot.
type Param struct {
	Name    string
	Type    DataType
	Default interface{}
}

// Params is an ordered collection of Param preserving declaration order,
// with name-based lookup for factories that pull config by name.
type Params []Param

// Get returns the Param with the given name and whether it was found.
func (p Params) Get(name string) (Param, bool) {
	for _, param := range p {
		if param.Name == name {
			return param, true
		}
	}
	return Param{}, false
}

// Index returns the position of the named param, or -1 if absent.
func (p Params) Index(name string) int {
	for i, param := range p {
		if param.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the ordered list of param names.
func (p Params) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// Channels binds a node to physical channels by key, keyed further by the
// node-local name used in config/IO calls.
type Channels struct {
	Read  map[ChannelKey]string
	Write map[ChannelKey]string
}

// Node is one compiled graph node: a type tag, its channel bindings,
// its static config, and its input/output param lists.
type Node struct {
	Key      string
	TypeTag  string
	Channels Channels
	Config   Params
	Inputs   Params
	Outputs  Params
}

func (n Node) String() string {
	return fmt.Sprintf("%s (%s)", n.Key, n.TypeTag)
}

// Function has the same shape as Node minus the type tag: a callable
// subgraph unit referenced by the scheduler for per-function execution
// scope.
type Function struct {
	Key     string
	Channels Channels
	Config  Params
	Inputs  Params
	Outputs Params
}

// Strata is an ordered sequence of topological layers, each a set of
// node keys. Every edge's source stratum index is <= its target's.
type Strata [][]string

// Stage is the set of nodes active for execution during that stage.
type Stage struct {
	Key   string
	Nodes []string
}

// Sequence is an ordered, linear list of stages.
type Sequence struct {
	Key    string
	Stages []Stage
}

// FindStage returns the stage with the given key, or nil if absent.
func (s *Sequence) FindStage(key string) *Stage {
	for i := range s.Stages {
		if s.Stages[i].Key == key {
			return &s.Stages[i]
		}
	}
	return nil
}

// NextStage returns the stage immediately after the one named by key, or
// nil if key names the last stage or is not found. Stages are linear: a
// sequence never loops.
func (s *Sequence) NextStage(key string) *Stage {
	for i := range s.Stages {
		if s.Stages[i].Key == key {
			if i+1 < len(s.Stages) {
				return &s.Stages[i+1]
			}
			return nil
		}
	}
	return nil
}

// IR is the immutable compiled graph: functions, nodes, edges, strata,
// and sequences.
type IR struct {
	Functions []Function
	Nodes     []Node
	Edges     []Edge
	Strata    Strata
	Sequences []Sequence
}

// FindNode returns the node with the given key, or nil if absent.
func (ir *IR) FindNode(key string) *Node {
	for i := range ir.Nodes {
		if ir.Nodes[i].Key == key {
			return &ir.Nodes[i]
		}
	}
	return nil
}

// FindFunction returns the function with the given key, or nil if absent.
func (ir *IR) FindFunction(key string) *Function {
	for i := range ir.Functions {
		if ir.Functions[i].Key == key {
			return &ir.Functions[i]
		}
	}
	return nil
}

// FindSequence returns the sequence with the given key, or nil if absent.
func (ir *IR) FindSequence(key string) *Sequence {
	for i := range ir.Sequences {
		if ir.Sequences[i].Key == key {
			return &ir.Sequences[i]
		}
	}
	return nil
}

// FindEdgeByTarget returns the edge whose target equals h, or nil if none.
// Each input param has at most one driving edge.
func (ir *IR) FindEdgeByTarget(h Handle) *Edge {
	for i := range ir.Edges {
		if ir.Edges[i].Target == h {
			return &ir.Edges[i]
		}
	}
	return nil
}

// OutgoingFrom returns the edges whose source node is nodeKey, in
// declaration order. Declaration order is preserved rather than grouped
// or sorted, matching the edge ordering the scheduler relies on when
// coalescing activations.
func (ir *IR) OutgoingFrom(nodeKey string) []Edge {
	var out []Edge
	for _, e := range ir.Edges {
		if e.Source.Node == nodeKey {
			out = append(out, e)
		}
	}
	return out
}

// OutgoingFromParam returns the edges whose source Handle equals h, in
// declaration order.
func (ir *IR) OutgoingFromParam(h Handle) []Edge {
	var out []Edge
	for _, e := range ir.Edges {
		if e.Source == h {
			out = append(out, e)
		}
	}
	return out
}

// IncomingTo returns the edges whose target node is nodeKey, in
// declaration order.
func (ir *IR) IncomingTo(nodeKey string) []Edge {
	var out []Edge
	for _, e := range ir.Edges {
		if e.Target.Node == nodeKey {
			out = append(out, e)
		}
	}
	return out
}

// StratumOf returns the index of the stratum containing nodeKey, or -1 if
// the node is not assigned to any stratum.
func (s Strata) StratumOf(nodeKey string) int {
	for i, layer := range s {
		for _, key := range layer {
			if key == nodeKey {
				return i
			}
		}
	}
	return -1
}
