package host

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arcrt/arc/ir"
	"github.com/arcrt/arc/runtime/node"
	"github.com/arcrt/arc/runtime/state"
	"github.com/arcrt/arc/runtime/timing"
	"github.com/arcrt/arc/telem"
)

type fakeBackend struct {
	mu      sync.Mutex
	drained [][]telem.ChannelSample
	err     error
	delay   time.Duration
}

func (f *fakeBackend) Ingest(ctx context.Context) (telem.Frame, error) {
	return telem.NewFrame(), nil
}

func (f *fakeBackend) Drain(ctx context.Context, writes []telem.ChannelSample, authority []state.AuthorityChange) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.drained = append(f.drained, writes)
	f.mu.Unlock()
	return f.err
}

func TestDrainAllFansOutToEveryBackend(t *testing.T) {
	a := &fakeBackend{}
	b := &fakeBackend{}
	writes := []telem.ChannelSample{{Channel: ir.ChannelKey(1)}}

	if err := DrainAll(context.Background(), []ChannelIO{a, b}, writes, nil); err != nil {
		t.Fatalf("DrainAll: %v", err)
	}
	if len(a.drained) != 1 || len(b.drained) != 1 {
		t.Fatalf("expected both backends drained once, got a=%d b=%d", len(a.drained), len(b.drained))
	}
}

func TestDrainAllReturnsFirstError(t *testing.T) {
	failing := &fakeBackend{err: errors.New("drain failed")}
	ok := &fakeBackend{delay: 20 * time.Millisecond}

	err := DrainAll(context.Background(), []ChannelIO{failing, ok}, nil, nil)
	if err == nil {
		t.Fatal("expected an error from the failing backend")
	}
}

func TestMailboxEnqueueCollectRoundTrip(t *testing.T) {
	mb := NewMailbox(4)
	ctx := context.Background()

	f := telem.NewFrame()
	f.Channels[ir.ChannelKey(1)] = telem.ChannelSample{Channel: ir.ChannelKey(1)}
	if err := mb.Enqueue(ctx, f); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got, err := mb.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if _, ok := got.Channels[ir.ChannelKey(1)]; !ok {
		t.Fatalf("collected frame missing channel 1: %v", got.Channels)
	}
}

func TestMailboxCollectMergesQueuedFrames(t *testing.T) {
	mb := NewMailbox(4)
	ctx := context.Background()

	f1 := telem.NewFrame()
	f1.Channels[ir.ChannelKey(1)] = telem.ChannelSample{Channel: ir.ChannelKey(1)}
	f2 := telem.NewFrame()
	f2.Channels[ir.ChannelKey(2)] = telem.ChannelSample{Channel: ir.ChannelKey(2)}

	if err := mb.Enqueue(ctx, f1); err != nil {
		t.Fatalf("Enqueue f1: %v", err)
	}
	if err := mb.Enqueue(ctx, f2); err != nil {
		t.Fatalf("Enqueue f2: %v", err)
	}

	merged, err := mb.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(merged.Channels) != 2 {
		t.Fatalf("expected both channels merged, got %v", merged.Channels)
	}
}

func TestMailboxTryCollectEmpty(t *testing.T) {
	mb := NewMailbox(1)
	if _, ok := mb.TryCollect(); ok {
		t.Fatal("expected TryCollect on an empty mailbox to report ok=false")
	}
}

func TestMailboxCollectRespectsCancellation(t *testing.T) {
	mb := NewMailbox(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mb.Collect(ctx); err == nil {
		t.Fatal("expected Collect to report the canceled context")
	}
}

// TestToleranceSourceTracksIntervalPeriods exercises the host-assembled
// wiring between a node factory and the timing core: every interval node
// built through the returned *timing.Factory folds its period into the
// tracker, and Tolerance derives from the accumulated GCD and the
// configured ExecutionMode.
func TestToleranceSourceTracksIntervalPeriods(t *testing.T) {
	ts, factory := NewToleranceSource(timing.HighRate)
	mf := node.NewMultiFactory(factory)

	graph := &ir.IR{Nodes: []ir.Node{
		{
			Key:     "i1",
			TypeTag: "interval",
			Config:  ir.Params{{Name: "period", Type: telem.Int64, Default: 20 * time.Millisecond}},
			Outputs: ir.Params{{Name: "output", Type: telem.Uint8}},
		},
		{
			Key:     "i2",
			TypeTag: "interval",
			Config:  ir.Params{{Name: "period", Type: telem.Int64, Default: 30 * time.Millisecond}},
			Outputs: ir.Params{{Name: "output", Type: telem.Uint8}},
		},
	}}
	st := state.New(graph, nil)

	for _, def := range graph.Nodes {
		handle, err := st.Node(def.Key)
		if err != nil {
			t.Fatalf("Node(%s): %v", def.Key, err)
		}
		if _, err := mf.Create(node.Config{Def: def, Handle: handle}); err != nil {
			t.Fatalf("Create(%s): %v", def.Key, err)
		}
	}

	// GCD(20ms, 30ms) = 10ms; half = 5ms; HighRate caps at 1ms.
	if got, want := ts.Tolerance(), time.Millisecond; got != want {
		t.Fatalf("Tolerance() = %v, want %v", got, want)
	}
}

func TestMailboxEnqueueBlocksUntilCapacityFrees(t *testing.T) {
	mb := NewMailbox(1)
	ctx := context.Background()
	full := telem.NewFrame()

	if err := mb.Enqueue(ctx, full); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- mb.Enqueue(ctx, full)
	}()

	select {
	case <-done:
		t.Fatal("second enqueue completed before the mailbox had capacity")
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := mb.Collect(ctx); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second enqueue: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second enqueue never unblocked")
	}
}
