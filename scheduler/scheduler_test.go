package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/arcrt/arc/ir"
	"github.com/arcrt/arc/runtime/authority"
	"github.com/arcrt/arc/runtime/channelio"
	"github.com/arcrt/arc/runtime/constant"
	"github.com/arcrt/arc/runtime/match"
	"github.com/arcrt/arc/runtime/node"
	"github.com/arcrt/arc/runtime/stage"
	"github.com/arcrt/arc/runtime/state"
	"github.com/arcrt/arc/runtime/timing"
	"github.com/arcrt/arc/telem"
)

func uintParam(name string) ir.Param { return ir.Param{Name: name, Type: telem.Uint8} }

// TestSchedulerConstantFiresOncePerRun covers spec scenario 1 and the
// single-no-edge-node boundary: constant emits on the first tick and is
// inert on every tick after.
func TestSchedulerConstantFiresOncePerRun(t *testing.T) {
	graph := &ir.IR{
		Nodes: []ir.Node{{
			Key:     "c1",
			TypeTag: "constant",
			Config:  ir.Params{{Name: "value", Type: telem.Uint8, Default: 1}},
			Outputs: ir.Params{uintParam("output")},
		}},
		Strata: ir.Strata{{"c1"}},
	}
	st := state.New(graph, nil)
	factory := node.NewMultiFactory(constant.Factory{})
	sched, err := New(graph, st, factory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if _, err := sched.Tick(ctx, 0, 0, nil); err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	out := st.Output(ir.Handle{Node: "c1", Param: "output"})
	if out.Data.Len() != 1 || out.Data.Uint8(0) != 1 {
		t.Fatalf("after tick 1, output = %v", out.Data)
	}

	if _, err := sched.Tick(ctx, 10*time.Millisecond, 0, nil); err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if out.Data.Len() != 1 {
		t.Fatalf("constant re-emitted on tick 2: len=%d", out.Data.Len())
	}
}

// TestSchedulerIntervalFiresAtBoundary covers spec scenario 2: an
// interval fires at tick 0 (armed by Reset), stays silent until its
// period elapses, then fires again.
func TestSchedulerIntervalFiresAtBoundary(t *testing.T) {
	period := 10 * time.Millisecond
	graph := &ir.IR{
		Nodes: []ir.Node{{
			Key:     "i1",
			TypeTag: "interval",
			Config:  ir.Params{{Name: "period", Type: telem.Int64, Default: period}},
			Outputs: ir.Params{uintParam("output")},
		}},
		Strata: ir.Strata{{"i1"}},
	}
	st := state.New(graph, nil)
	tracker := timing.NewBaseIntervalTracker()
	factory := node.NewMultiFactory(timing.NewFactory(tracker))
	sched, err := New(graph, st, factory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	handle := ir.Handle{Node: "i1", Param: "output"}

	if _, err := sched.Tick(ctx, 0, 0, nil); err != nil {
		t.Fatalf("tick @0: %v", err)
	}
	if got := st.Output(handle).Time.TimestampNanos(0); got != 0 {
		t.Fatalf("expected fire at elapsed=0, got fire time %d", got)
	}

	if _, err := sched.Tick(ctx, 5*time.Millisecond, 0, nil); err != nil {
		t.Fatalf("tick @5ms: %v", err)
	}
	if got := st.Output(handle).Time.TimestampNanos(0); got != 0 {
		t.Fatalf("interval fired early: fire time now %d", got)
	}

	if _, err := sched.Tick(ctx, period, 0, nil); err != nil {
		t.Fatalf("tick @period: %v", err)
	}
	if got := st.Output(handle).Time.TimestampNanos(0); got != uint64(period) {
		t.Fatalf("expected second fire at elapsed=%d, got %d", period, got)
	}
}

// TestSchedulerWaitFiresOnceAcrossTicks covers spec scenario 3: wait
// fires exactly once, on the tick where elapsed crosses its duration.
func TestSchedulerWaitFiresOnceAcrossTicks(t *testing.T) {
	duration := 20 * time.Millisecond
	graph := &ir.IR{
		Nodes: []ir.Node{{
			Key:     "w1",
			TypeTag: "wait",
			Config:  ir.Params{{Name: "duration", Type: telem.Int64, Default: duration}},
			Outputs: ir.Params{uintParam("output")},
		}},
		Strata: ir.Strata{{"w1"}},
	}
	st := state.New(graph, nil)
	tracker := timing.NewBaseIntervalTracker()
	factory := node.NewMultiFactory(timing.NewFactory(tracker))
	sched, err := New(graph, st, factory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	handle := ir.Handle{Node: "w1", Param: "output"}

	for _, elapsed := range []time.Duration{0, 10 * time.Millisecond} {
		if _, err := sched.Tick(ctx, elapsed, 0, nil); err != nil {
			t.Fatalf("tick @%v: %v", elapsed, err)
		}
		if st.Output(handle).Data.Len() != 0 {
			t.Fatalf("wait fired early at elapsed=%v", elapsed)
		}
	}

	if _, err := sched.Tick(ctx, duration, 0, nil); err != nil {
		t.Fatalf("tick @duration: %v", err)
	}
	if st.Output(handle).Data.Len() != 1 {
		t.Fatalf("wait did not fire at elapsed=duration")
	}

	if _, err := sched.Tick(ctx, duration+time.Millisecond, 0, nil); err != nil {
		t.Fatalf("tick after fire: %v", err)
	}
	if st.Output(handle).Time.TimestampNanos(0) != uint64(duration) {
		t.Fatalf("wait fired a second time without a reset")
	}
}

// TestSchedulerMatchRoutesAcrossStrata covers spec scenario 4 and the
// same-tick cascading rule: a constant source feeds a match router one
// stratum later, within the same tick.
func TestSchedulerMatchRoutesAcrossStrata(t *testing.T) {
	graph := &ir.IR{
		Nodes: []ir.Node{
			{
				Key:     "src",
				TypeTag: "constant",
				Config:  ir.Params{{Name: "value", Type: telem.String, Default: "a"}},
				Outputs: ir.Params{{Name: "output", Type: telem.String}},
			},
			{
				Key:     "m1",
				TypeTag: "match",
				Config: ir.Params{{Name: "cases", Type: ir.Unknown, Default: []match.Case{
					{Value: "a", Output: "route_a"},
				}}},
				Inputs:  ir.Params{{Name: "in", Type: telem.String}},
				Outputs: ir.Params{uintParam("route_a"), uintParam("route_b")},
			},
		},
		Edges: []ir.Edge{{
			Source: ir.Handle{Node: "src", Param: "output"},
			Target: ir.Handle{Node: "m1", Param: "in"},
			Kind:   ir.Continuous,
		}},
		Strata: ir.Strata{{"src"}, {"m1"}},
	}
	st := state.New(graph, nil)
	factory := node.NewMultiFactory(constant.Factory{}, match.Factory{})
	sched, err := New(graph, st, factory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := sched.Tick(context.Background(), 0, 0, nil); err != nil {
		t.Fatalf("tick: %v", err)
	}
	routeA := st.Output(ir.Handle{Node: "m1", Param: "route_a"})
	if routeA.Data.Len() != 1 || routeA.Data.Uint8(0) != 1 {
		t.Fatalf("match did not route to route_a: %v", routeA.Data)
	}
	routeB := st.Output(ir.Handle{Node: "m1", Param: "route_b"})
	if routeB.Data.Len() != 0 {
		t.Fatalf("match fired the wrong case: route_b = %v", routeB.Data)
	}
}

// TestSchedulerStageTransition covers spec scenario 5: a trigger in the
// first stage fires a one-shot edge into a stage_entry node, which is
// reachable despite not yet belonging to the active stage; the
// transition advances current_stage and Resets the newly entered
// stage's nodes, which then become active and inert nodes from the
// vacated stage stop running.
func TestSchedulerStageTransition(t *testing.T) {
	graph := &ir.IR{
		Nodes: []ir.Node{
			{
				Key:     "trigger",
				TypeTag: "interval",
				Config:  ir.Params{{Name: "period", Type: telem.Int64, Default: time.Millisecond}},
				Outputs: ir.Params{uintParam("output")},
			},
			{
				Key:     "entry",
				TypeTag: "stage_entry",
			},
			{
				Key:     "after",
				TypeTag: "constant",
				Config:  ir.Params{{Name: "value", Type: telem.Uint8, Default: 1}},
				Outputs: ir.Params{uintParam("output")},
			},
		},
		Edges: []ir.Edge{{
			Source: ir.Handle{Node: "trigger", Param: "output"},
			Target: ir.Handle{Node: "entry", Param: "activate"},
			Kind:   ir.OneShot,
		}},
		Strata: ir.Strata{{"trigger"}, {"entry", "after"}},
		Sequences: []ir.Sequence{{
			Key: "seq1",
			Stages: []ir.Stage{
				{Key: "s0", Nodes: []string{"trigger"}},
				{Key: "s1", Nodes: []string{"entry", "after"}},
			},
		}},
	}
	st := state.New(graph, nil)
	tracker := timing.NewBaseIntervalTracker()
	factory := node.NewMultiFactory(timing.NewFactory(tracker), stage.Factory{}, constant.Factory{})
	sched, err := New(graph, st, factory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if cur, ok := st.CurrentStage("seq1"); !ok || cur != "s0" {
		t.Fatalf("expected initial stage s0, got %q (ok=%v)", cur, ok)
	}

	if _, err := sched.Tick(ctx, 0, 0, nil); err != nil {
		t.Fatalf("tick 1: %v", err)
	}

	if cur, _ := st.CurrentStage("seq1"); cur != "s1" {
		t.Fatalf("expected transition to s1 after tick 1, got %q", cur)
	}
	// "after" belongs to s1, which was not active until this tick's stage
	// transition landed after dispatch, so it has not run yet.
	afterOut := st.Output(ir.Handle{Node: "after", Param: "output"})
	if afterOut.Data.Len() != 0 {
		t.Fatalf("after ran before its stage became active: %v", afterOut.Data)
	}

	if _, err := sched.Tick(ctx, time.Millisecond, 0, nil); err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if afterOut.Data.Len() != 1 || afterOut.Data.Uint8(0) != 1 {
		t.Fatalf("after did not run once its stage became active: %v", afterOut.Data)
	}
}

// TestSchedulerChannelHighWaterMark covers spec scenario 6: an "on" node
// delivers new samples once and suppresses a duplicate alignment.
func TestSchedulerChannelHighWaterMark(t *testing.T) {
	channelKey := ir.ChannelKey(7)
	graph := &ir.IR{
		Nodes: []ir.Node{{
			Key:      "on1",
			TypeTag:  "on",
			Config:   ir.Params{{Name: "channel", Type: telem.Uint32, Default: int(channelKey)}},
			Outputs:  ir.Params{{Name: "output", Type: telem.Float64}},
			Channels: ir.Channels{Read: map[ir.ChannelKey]string{channelKey: "in"}},
		}},
		Strata: ir.Strata{{"on1"}},
	}
	st := state.New(graph, []state.ChannelDigest{{Key: channelKey, DataType: telem.Float64}})
	factory := node.NewMultiFactory(channelio.Factory{})
	sched, err := New(graph, st, factory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	handle := ir.Handle{Node: "on1", Param: "output"}

	frame1 := telem.NewFrame()
	data1 := telem.NewSeries(telem.Float64)
	data1.Resize(2)
	data1.SetFloat64(0, 1.0)
	data1.SetFloat64(1, 2.0)
	data1.Alignment = 0
	time1 := telem.NewSeries(telem.Timestamp)
	time1.Resize(2)
	frame1.Channels[channelKey] = telem.ChannelSample{Channel: channelKey, Data: data1, Time: time1}

	if _, err := sched.Tick(ctx, 0, 0, &frame1); err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	out := st.Output(handle)
	if out.Data.Len() != 2 || out.Data.Float64(1) != 2.0 {
		t.Fatalf("on did not deliver frame 1: %v", out.Data)
	}

	// Same alignment delivered again: must be suppressed as stale.
	frame2 := telem.NewFrame()
	data2 := telem.NewSeries(telem.Float64)
	data2.Resize(2)
	data2.SetFloat64(0, 99.0)
	data2.SetFloat64(1, 99.0)
	data2.Alignment = 0
	frame2.Channels[channelKey] = telem.ChannelSample{Channel: channelKey, Data: data2, Time: telem.NewSeries(telem.Timestamp)}

	if _, err := sched.Tick(ctx, time.Millisecond, 0, &frame2); err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if out.Data.Float64(1) != 2.0 {
		t.Fatalf("on delivered a stale alignment: %v", out.Data)
	}

	// Advanced alignment is delivered.
	frame3 := telem.NewFrame()
	data3 := telem.NewSeries(telem.Float64)
	data3.Resize(1)
	data3.SetFloat64(0, 3.0)
	data3.Alignment = 2
	frame3.Channels[channelKey] = telem.ChannelSample{Channel: channelKey, Data: data3, Time: telem.NewSeries(telem.Timestamp)}

	if _, err := sched.Tick(ctx, 2*time.Millisecond, 0, &frame3); err != nil {
		t.Fatalf("tick 3: %v", err)
	}
	if out.Data.Len() != 1 || out.Data.Float64(0) != 3.0 {
		t.Fatalf("on did not deliver the advanced alignment: %v", out.Data)
	}
}

// TestSchedulerEmptyIRNoOp is the empty-graph boundary: a tick on an IR
// with no nodes must succeed and produce no writes or errors.
func TestSchedulerEmptyIRNoOp(t *testing.T) {
	graph := &ir.IR{}
	st := state.New(graph, nil)
	sched, err := New(graph, st, node.NewMultiFactory())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := sched.Tick(context.Background(), 0, 0, nil)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(result.Writes) != 0 || len(result.AuthorityChanges) != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected an empty TickResult, got %+v", result)
	}
}

// TestSchedulerSetAuthorityFlushesPerTick exercises authority change
// accumulation and the flush-on-tick-end contract.
func TestSchedulerSetAuthorityFlushesPerTick(t *testing.T) {
	graph := &ir.IR{
		Nodes: []ir.Node{{
			Key:     "a1",
			TypeTag: "set_authority",
			Config:  ir.Params{{Name: "value", Type: telem.Uint8, Default: 1}},
		}},
		Strata: ir.Strata{{"a1"}},
	}
	st := state.New(graph, nil)
	factory := node.NewMultiFactory(authority.NewFactory(st))
	sched, err := New(graph, st, factory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := sched.Tick(context.Background(), 0, 0, nil)
	if err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	if len(result.AuthorityChanges) != 1 || result.AuthorityChanges[0].Value != 1 {
		t.Fatalf("expected one authority change, got %+v", result.AuthorityChanges)
	}
	if result.AuthorityChanges[0].Channel != nil {
		t.Fatalf("expected a global authority change, got channel %v", result.AuthorityChanges[0].Channel)
	}

	// set_authority is timer-like (no inputs, not stage_entry) and
	// re-requests every tick; the queue must not accumulate stale entries
	// across ticks.
	result2, err := sched.Tick(context.Background(), time.Millisecond, 0, nil)
	if err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if len(result2.AuthorityChanges) != 1 {
		t.Fatalf("expected exactly one authority change on tick 2, got %d", len(result2.AuthorityChanges))
	}
}
