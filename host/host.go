// Package host defines the boundary between the scheduler's tick loop and
// whatever is feeding it telemetry: the ChannelIO interface a concrete
// transport implements, Mailbox, the thread-safe buffer a host uses to
// hand frames to the tick loop, and DrainAll, which fans a tick's write
// results back out to every backend.
package host

import (
	"context"

	"github.com/arcrt/arc/runtime/state"
	"github.com/arcrt/arc/telem"
	"golang.org/x/sync/errgroup"
)

// ChannelIO is the interface a host's transport layer implements: pull one
// frame of buffered channel samples per call, and push a tick's writes and
// authority changes back out.
type ChannelIO interface {
	Ingest(ctx context.Context) (telem.Frame, error)
	Drain(ctx context.Context, writes []telem.ChannelSample, authority []state.AuthorityChange) error
}

// DrainAll fans a tick's writes and authority changes out to every backend
// concurrently, bounded by an errgroup, and returns the first error any
// backend reports (canceling the others via the shared context).
func DrainAll(ctx context.Context, backends []ChannelIO, writes []telem.ChannelSample, authority []state.AuthorityChange) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, backend := range backends {
		backend := backend
		g.Go(func() error {
			return backend.Drain(gctx, writes, authority)
		})
	}
	return g.Wait()
}
