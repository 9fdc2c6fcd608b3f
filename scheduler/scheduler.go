// Package scheduler implements the per-tick dispatcher (C7): changed-set
// construction, stratum-ordered execution, edge propagation, and stage
// activation.
package scheduler

import (
	"context"
	"time"

	"github.com/arcrt/arc/emit"
	"github.com/arcrt/arc/errs"
	"github.com/arcrt/arc/ir"
	"github.com/arcrt/arc/runtime/node"
	"github.com/arcrt/arc/runtime/state"
	"github.com/arcrt/arc/telem"
	"github.com/google/uuid"
)

// nodeKind classifies how a node enters the initial changed set each
// tick. The IR does not carry this classification explicitly; it is
// derived once at construction time from each node's declared inputs and
// type tag — see DESIGN.md for the reasoning.
type nodeKind int

const (
	// timerLike nodes declare no inputs, are not stage_entry, and are
	// dispatched every tick with reason TimerTick (constant, on,
	// interval, wait, and any other source-shaped node kind).
	timerLike nodeKind = iota
	// inputDriven nodes declare at least one input and are dispatched
	// with reason ChannelInput only when their inputs have advanced.
	inputDriven
	// activationOnly nodes (stage_entry) are never part of the initial
	// changed set; they run only when an edge activates them.
	activationOnly
)

// TickResult is the per-tick aggregate the host consumes: accumulated
// channel writes, authority-change requests, and non-fatal node errors.
type TickResult struct {
	Writes           []telem.ChannelSample
	AuthorityChanges []state.AuthorityChange
	Errors           []error
}

// Scheduler owns the tick loop (C7) over a fixed IR and State.
type Scheduler struct {
	graph *ir.IR
	state *state.State

	nodes   map[string]node.Node
	handles map[string]*state.Node
	kindOf  map[string]nodeKind

	// nodeSequence maps a node key to the sequence it belongs to, for
	// resolving activate_stage requests.
	nodeSequence map[string]string
	// everStaged marks every node key referenced by any stage of any
	// sequence; nodes absent from this set are always active ("global"
	// nodes), per DESIGN.md's Open Question resolution.
	everStaged map[string]bool

	cfg *config

	runID   string
	tickNum int64

	// carryover holds nodes deferred from the prior tick under the
	// "already ran this stratum" tie-break rule.
	carryover map[string]bool
}

// New constructs a Scheduler, building a NodeHandle and a runtime node
// instance for every IR node via factory.
func New(graph *ir.IR, st *state.State, factory node.Factory, opts ...Option) (*Scheduler, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	s := &Scheduler{
		graph:        graph,
		state:        st,
		nodes:        make(map[string]node.Node, len(graph.Nodes)),
		handles:      make(map[string]*state.Node, len(graph.Nodes)),
		kindOf:       make(map[string]nodeKind, len(graph.Nodes)),
		nodeSequence: make(map[string]string),
		everStaged:   make(map[string]bool),
		cfg:          cfg,
		carryover:    make(map[string]bool),
	}

	if cfg.runID != "" {
		s.runID = cfg.runID
	} else {
		s.runID = uuid.NewString()
	}

	for _, def := range graph.Nodes {
		handle, err := st.Node(def.Key)
		if err != nil {
			return nil, err
		}
		s.handles[def.Key] = handle

		inst, err := factory.Create(node.Config{Def: def, Handle: handle})
		if err != nil {
			return nil, err
		}
		s.nodes[def.Key] = inst

		switch {
		case len(def.Inputs) > 0:
			s.kindOf[def.Key] = inputDriven
		case def.TypeTag == "stage_entry":
			s.kindOf[def.Key] = activationOnly
		default:
			s.kindOf[def.Key] = timerLike
		}
	}

	for _, seq := range graph.Sequences {
		for _, stageDef := range seq.Stages {
			for _, key := range stageDef.Nodes {
				s.nodeSequence[key] = seq.Key
				s.everStaged[key] = true
			}
		}
	}

	return s, nil
}

func (s *Scheduler) stratumIndex(key string) int {
	idx := s.graph.Strata.StratumOf(key)
	if idx < 0 {
		return 0
	}
	return idx
}

// resolveActiveNodes returns the set of node keys active this tick: every
// sequence's current stage, plus every node never referenced by any
// stage at all. With no sequences declared, every node is active.
func (s *Scheduler) resolveActiveNodes() map[string]bool {
	active := make(map[string]bool, len(s.graph.Nodes))

	if len(s.graph.Sequences) == 0 {
		for _, n := range s.graph.Nodes {
			active[n.Key] = true
		}
		return active
	}

	for _, seq := range s.graph.Sequences {
		stageKey, ok := s.state.CurrentStage(seq.Key)
		if !ok {
			continue
		}
		seqDef := s.graph.FindSequence(seq.Key)
		if seqDef == nil {
			continue
		}
		stageDef := seqDef.FindStage(stageKey)
		if stageDef == nil {
			continue
		}
		for _, key := range stageDef.Nodes {
			active[key] = true
		}
	}
	for _, n := range s.graph.Nodes {
		if !s.everStaged[n.Key] {
			active[n.Key] = true
		}
	}
	return active
}

// pendingItem is one entry in a stratum's dispatch queue.
type pendingItem struct {
	key    string
	reason node.Reason
}

// tickRun holds the per-tick mutable bookkeeping the scheduling algorithm
// needs while dispatching: this keeps Tick's closures small instead of
// capturing a long list of loop-local maps.
type tickRun struct {
	sched     *Scheduler
	active    map[string]bool
	changed   map[int][]pendingItem
	scheduled map[string]bool
	ran       map[string]bool
	highest   int

	stageActivations map[string]bool
	errors           []error
}

func (tr *tickRun) add(key string, reason node.Reason) {
	if tr.scheduled[key] {
		return
	}
	tr.scheduled[key] = true
	idx := tr.sched.stratumIndex(key)
	tr.changed[idx] = append(tr.changed[idx], pendingItem{key: key, reason: reason})
	if idx > tr.highest {
		tr.highest = idx
	}
}

// markChanged implements §4.6 step 4b: look up outgoing edges from
// (sourceKey, param) and add targets to the changed set per edge kind,
// applying the same-stratum/next-stratum/carryover tie-break rules.
func (tr *tickRun) markChanged(sourceKey, param string, currentIdx int) {
	sched := tr.sched
	handle := sched.handles[sourceKey]

	for _, e := range sched.graph.OutgoingFromParam(ir.Handle{Node: sourceKey, Param: param}) {
		targetKey := e.Target.Node
		// activation-only nodes (stage_entry) are reachable regardless of
		// the current active-stage set: their purpose is to fire the
		// transition into a stage they do not yet belong to.
		if !tr.active[targetKey] && sched.kindOf[targetKey] != activationOnly {
			continue
		}
		if e.Kind == ir.OneShot && !handle.IsOutputTruthy(e.Source.Param) {
			continue
		}

		targetIdx := sched.stratumIndex(targetKey)
		switch {
		case targetIdx == currentIdx:
			if tr.ran[targetKey] {
				// Already ran its own stratum this tick: deferred.
				sched.carryover[targetKey] = true
				continue
			}
			if tr.scheduled[targetKey] {
				continue // coalesce multiple one-shot activations
			}
			tr.scheduled[targetKey] = true
			tr.changed[targetIdx] = append(tr.changed[targetIdx], pendingItem{key: targetKey, reason: node.Activation})
		case targetIdx > currentIdx:
			if tr.scheduled[targetKey] {
				continue
			}
			tr.scheduled[targetKey] = true
			tr.changed[targetIdx] = append(tr.changed[targetIdx], pendingItem{key: targetKey, reason: node.Activation})
			if targetIdx > tr.highest {
				tr.highest = targetIdx
			}
		default:
			// Target stratum precedes the source's: cannot happen under
			// a valid IR, but fails safe by deferring rather than
			// re-running a node out of stratum order.
			sched.carryover[targetKey] = true
		}
	}
}

func (tr *tickRun) reportError(key, typeTag string, err error) {
	wrapped := errs.Wrap(errs.RuntimeFailure, err, "node '%s' reported an error", key).WithNode(key, typeTag)
	tr.errors = append(tr.errors, wrapped)
	tr.sched.cfg.metrics.recordNodeError(key)
	tr.sched.cfg.emitter.Emit(emit.Event{
		RunID: tr.sched.runID,
		Tick:  tr.sched.tickNum,
		Node:  key,
		Msg:   "node_error",
		Meta:  map[string]interface{}{"error": err.Error()},
	})
}

// Tick runs one dispatch cycle: ingest frame (if any), build the changed
// set, execute nodes in strict stratum order, process stage activations,
// and flush writes/authority changes.
func (s *Scheduler) Tick(ctx context.Context, elapsed, tolerance time.Duration, frame *telem.Frame) (TickResult, error) {
	if err := ctx.Err(); err != nil {
		return TickResult{}, err
	}

	start := time.Now()
	s.tickNum++

	if frame != nil {
		s.state.Ingest(*frame)
	}

	tr := &tickRun{
		sched:            s,
		active:           s.resolveActiveNodes(),
		changed:          make(map[int][]pendingItem),
		scheduled:        make(map[string]bool),
		ran:              make(map[string]bool),
		stageActivations: make(map[string]bool),
	}

	for key := range s.carryover {
		if tr.active[key] {
			tr.add(key, node.Activation)
		}
	}
	s.carryover = make(map[string]bool)

	for _, def := range s.graph.Nodes {
		key := def.Key
		if !tr.active[key] {
			continue
		}
		switch s.kindOf[key] {
		case timerLike:
			tr.add(key, node.TimerTick)
		case inputDriven:
			if s.handles[key].WouldAdvance() {
				tr.add(key, node.ChannelInput)
			}
		}
	}

	s.cfg.emitter.Emit(emit.Event{RunID: s.runID, Tick: s.tickNum, Msg: "tick_start"})

	dispatched := 0
	for idx := 0; idx <= tr.highest; idx++ {
		for i := 0; i < len(tr.changed[idx]); i++ {
			item := tr.changed[idx][i]
			if tr.ran[item.key] {
				continue
			}
			tr.ran[item.key] = true
			dispatched++

			inst := s.nodes[item.key]
			handle := s.handles[item.key]

			nodeCtx := &node.Context{
				Elapsed:   elapsed,
				Tolerance: tolerance,
				Reason:    item.reason,
				MarkChanged: func(param string) {
					tr.markChanged(item.key, param, idx)
				},
				ReportError: func(err error) {
					tr.reportError(item.key, handle.TypeTag(), err)
				},
				ActivateStage: func() {
					if seqKey, ok := s.nodeSequence[item.key]; ok {
						tr.stageActivations[seqKey] = true
					}
				},
			}

			if err := inst.Next(nodeCtx); err != nil {
				tr.reportError(item.key, handle.TypeTag(), err)
			}
		}
	}

	s.advanceStages(tr.stageActivations)

	writes := s.state.FlushWrites()
	authChanges := s.state.FlushAuthorityChanges()
	s.state.ClearReads()

	s.cfg.metrics.recordTick(dispatched, time.Since(start).Seconds())
	s.cfg.emitter.Emit(emit.Event{
		RunID: s.runID, Tick: s.tickNum, Msg: "tick_complete",
		Meta: map[string]interface{}{"dispatched": dispatched, "errors": len(tr.errors)},
	})

	return TickResult{Writes: writes, AuthorityChanges: authChanges, Errors: tr.errors}, nil
}

// advanceStages implements §4.6 step 5 and §4.7: for every sequence whose
// stage_entry fired this tick, advance to the next stage (staying at the
// terminal stage if there is none) and Reset every node in the
// newly-entered stage.
func (s *Scheduler) advanceStages(requested map[string]bool) {
	for seqKey := range requested {
		seqDef := s.graph.FindSequence(seqKey)
		if seqDef == nil {
			continue
		}
		cur, ok := s.state.CurrentStage(seqKey)
		if !ok {
			continue
		}
		next := seqDef.NextStage(cur)
		if next == nil {
			continue // terminal stage: stays
		}
		s.state.SetCurrentStage(seqKey, next.Key)
		s.cfg.metrics.recordStageActivation(seqKey)
		s.cfg.emitter.Emit(emit.Event{
			RunID: s.runID, Tick: s.tickNum, Msg: "stage_activate",
			Meta: map[string]interface{}{"sequence": seqKey, "stage": next.Key},
		})
		for _, key := range next.Nodes {
			if inst, ok := s.nodes[key]; ok {
				inst.Reset()
			}
		}
	}
}

// RunID returns the identifier this scheduler's events and metrics are
// tagged with.
func (s *Scheduler) RunID() string { return s.runID }
