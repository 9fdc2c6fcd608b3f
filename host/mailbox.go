package host

import (
	"context"

	"github.com/arcrt/arc/telem"
)

// Mailbox is a bounded, thread-safe handoff point between a host's
// ingestion goroutines and the single-threaded tick loop: producers
// Enqueue frames as samples arrive, and the tick loop calls Collect once
// per tick to obtain everything queued since the last call, merged into
// one Frame. Capacity bounds memory the way the teacher's Frontier bounds
// its work queue: a full mailbox applies backpressure to producers rather
// than growing without limit.
type Mailbox struct {
	inbox chan telem.Frame
}

// NewMailbox returns a Mailbox buffering up to capacity frames before
// Enqueue starts blocking.
func NewMailbox(capacity int) *Mailbox {
	return &Mailbox{inbox: make(chan telem.Frame, capacity)}
}

// Enqueue adds frame to the mailbox, blocking if it is full until space
// frees up or ctx is canceled.
func (m *Mailbox) Enqueue(ctx context.Context, frame telem.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.inbox <- frame:
		return nil
	}
}

// Collect blocks until at least one frame is available, then drains every
// additional frame already queued without blocking further, merging them
// into a single Frame. Later frames win on a channel-key collision, since
// they carry more recent samples.
func (m *Mailbox) Collect(ctx context.Context) (telem.Frame, error) {
	select {
	case <-ctx.Done():
		return telem.Frame{}, ctx.Err()
	case first := <-m.inbox:
		merged := telem.NewFrame()
		mergeInto(merged, first)
		for {
			select {
			case next := <-m.inbox:
				mergeInto(merged, next)
			default:
				return merged, nil
			}
		}
	}
}

// TryCollect is Collect's non-blocking form: it returns immediately with
// ok=false if nothing is queued, for a host that wants to tick on a fixed
// schedule without waiting for new samples.
func (m *Mailbox) TryCollect() (frame telem.Frame, ok bool) {
	select {
	case first := <-m.inbox:
		merged := telem.NewFrame()
		mergeInto(merged, first)
		for {
			select {
			case next := <-m.inbox:
				mergeInto(merged, next)
			default:
				return merged, true
			}
		}
	default:
		return telem.Frame{}, false
	}
}

func mergeInto(dst, src telem.Frame) {
	for key, sample := range src.Channels {
		dst.Channels[key] = sample
	}
}
