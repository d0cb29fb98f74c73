package tonegraph

import "sync/atomic"

// Stats is a snapshot of graph counters. Overflows on the processing path
// are never reported as errors, they are counted here.
type Stats struct {
	// Ticks is a number of processed samples.
	Ticks uint64
	// PendingDropped counts emitted events lost to pending buffer overflow
	// or invalid offsets.
	PendingDropped uint64
	// QueueDropped counts events lost to input queue overflow.
	QueueDropped uint64
	// InboxDropped counts external events rejected by QueueEvent.
	InboxDropped uint64
	// Rebuilds counts published processing plans.
	Rebuilds uint64
}

type counters struct {
	ticks        atomic.Uint64
	queueDropped atomic.Uint64
	inboxDropped atomic.Uint64
	rebuilds     atomic.Uint64
}

// Stats returns current counters. It's safe to call from any goroutine.
func (g *Graph) Stats() Stats {
	return Stats{
		Ticks:          g.counters.ticks.Load(),
		PendingDropped: g.pending.Dropped(),
		QueueDropped:   g.counters.queueDropped.Load(),
		InboxDropped:   g.counters.inboxDropped.Load(),
		Rebuilds:       g.counters.rebuilds.Load(),
	}
}
